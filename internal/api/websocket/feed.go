package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"litebans-web/internal/model"
)

const (
	snapshotSize = 10
	batchLimit   = 50
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // sessions are checked by the auth middleware
	},
}

type FeedService interface {
	Latest(ctx context.Context, cat model.Category, limit int) ([]model.EnrichedRecord, error)
	Since(ctx context.Context, cat model.Category, afterID int64, limit int) ([]model.EnrichedRecord, error)
}

// FeedMessage is sent from server to client. Type is "snapshot" for the
// newest records of a category, "records" for records created since the
// previous message, or "error".
type FeedMessage struct {
	Type     string                 `json:"type"`
	Category string                 `json:"category,omitempty"`
	Items    []model.EnrichedRecord `json:"items,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// ClientMessage is sent from client to server. "subscribe" switches the
// feed to another category.
type ClientMessage struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

// RecordFeedHandler upgrades the connection and streams newly created
// records of the chosen category, polling every interval. Open feeds are
// closed when shutdown is done.
func RecordFeedHandler(shutdown context.Context, svc FeedService, interval time.Duration, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "record_feed").Logger()

	return func(c *gin.Context) {
		category, ok := model.LookupCategory(c.DefaultQuery("category", "ban"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()
		stop := context.AfterFunc(shutdown, cancel)
		defer stop()

		subscribe := make(chan model.Category, 1)
		go readLoop(ctx, conn, subscribe, cancel, log)

		f := &feed{svc: svc, conn: conn, log: log}
		if err := f.snapshot(ctx, category); err != nil {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case cat := <-subscribe:
				category = cat
				if err := f.snapshot(ctx, category); err != nil {
					return
				}
			case <-ticker.C:
				if err := f.poll(ctx, category); err != nil {
					return
				}
			}
		}
	}
}

type feed struct {
	svc    FeedService
	conn   *websocket.Conn
	log    zerolog.Logger
	lastID int64
	ready  bool
}

func (f *feed) snapshot(ctx context.Context, cat model.Category) error {
	f.ready = false
	items, err := f.svc.Latest(ctx, cat, snapshotSize)
	if err != nil {
		return f.reportError(ctx, err)
	}
	f.lastID, f.ready = 0, true
	for _, r := range items {
		f.lastID = max(f.lastID, r.ID)
	}
	if items == nil {
		items = []model.EnrichedRecord{}
	}
	return f.send(FeedMessage{Type: "snapshot", Category: cat.ID, Items: items})
}

func (f *feed) poll(ctx context.Context, cat model.Category) error {
	if !f.ready {
		return f.snapshot(ctx, cat)
	}
	items, err := f.svc.Since(ctx, cat, f.lastID, batchLimit)
	if err != nil {
		return f.reportError(ctx, err)
	}
	if len(items) == 0 {
		return nil
	}
	f.lastID = items[len(items)-1].ID
	return f.send(FeedMessage{Type: "records", Category: cat.ID, Items: items})
}

// reportError tells the client about a failed query and keeps the feed open.
func (f *feed) reportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.log.Warn().Err(err).Msg("feed query failed")
	return f.send(FeedMessage{Type: "error", Error: "failed to load records"})
}

func (f *feed) send(msg FeedMessage) error {
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := f.conn.WriteJSON(msg); err != nil {
		f.log.Debug().Err(err).Msg("feed write failed")
		return err
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, subscribe chan<- model.Category, cancel context.CancelFunc, log zerolog.Logger) {
	defer cancel()
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("feed read ended")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(p, &msg); err != nil {
			log.Debug().Err(err).Msg("invalid feed message")
			continue
		}
		if msg.Type != "subscribe" {
			continue
		}
		cat, ok := model.LookupCategory(msg.Category)
		if !ok {
			continue
		}
		select {
		case subscribe <- cat:
		case <-ctx.Done():
			return
		}
	}
}

package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/telebot.v3"

	"litebans-web/internal/model"
)

type StatsProvider interface {
	Snapshot(ctx context.Context) (*model.InstanceStats, error)
}

// BotHandler holds the bot instance and configuration
type BotHandler struct {
	Bot       *telebot.Bot
	WebAppURL string
	stats     StatsProvider
	log       zerolog.Logger
}

// NewBotHandler initializes and returns a new BotHandler
func NewBotHandler(token, webAppURL string, stats StatsProvider, log zerolog.Logger) (*BotHandler, error) {
	pref := telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := telebot.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	handler := &BotHandler{
		Bot:       b,
		WebAppURL: webAppURL,
		stats:     stats,
		log:       log.With().Str("component", "telegram_bot").Logger(),
	}

	handler.setupHandlers()
	return handler, nil
}

func (h *BotHandler) setupHandlers() {
	h.Bot.Handle("/start", h.handleStart)
	h.Bot.Handle("/stats", h.handleStats)
}

// handleStart responds to the /start command with a Web App button
func (h *BotHandler) handleStart(c telebot.Context) error {
	message := fmt.Sprintf("Welcome, %s! Use /stats for a punishment summary.", c.Sender().FirstName)
	if h.WebAppURL == "" {
		return c.Send(message)
	}

	webAppButton := telebot.ReplyMarkup{
		InlineKeyboard: [][]telebot.InlineButton{
			{
				telebot.InlineButton{
					Text:   "Open punishment dashboard",
					WebApp: &telebot.WebApp{URL: h.WebAppURL},
				},
			},
		},
	}
	return c.Send(message+" The button below opens the dashboard.", &webAppButton)
}

func (h *BotHandler) handleStats(c telebot.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := h.stats.Snapshot(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("stats snapshot failed")
		return c.Send("Stats are unavailable right now, please try again later.")
	}
	return c.Send(FormatStats(s))
}

// FormatStats renders a stats snapshot as a chat message.
func FormatStats(s *model.InstanceStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Players seen: %d\n", s.UniquePlayers)
	for _, cat := range model.Categories() {
		fmt.Fprintf(&b, "%ss: %d\n", cat.DisplayName, s.CategoryStats[cat.ID])
	}
	if !s.CollectedAt.IsZero() {
		fmt.Fprintf(&b, "Updated %s", s.CollectedAt.Format(time.RFC822))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Start starts the bot poller and stops it when ctx ends.
func (h *BotHandler) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		h.Bot.Stop()
	}()
	h.Bot.Start()
}

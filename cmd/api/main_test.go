package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"litebans-web/internal/api/handler"
	"litebans-web/internal/auth"
	"litebans-web/internal/model"
	"litebans-web/internal/pagination"
	"litebans-web/internal/records"
	"litebans-web/internal/share"
)

type tokenVerifier map[string]string

func (v tokenVerifier) Verify(_ context.Context, token string) (*auth.Session, error) {
	if id, ok := v[token]; ok {
		return &auth.Session{UserID: id}, nil
	}
	return nil, auth.ErrUnauthenticated
}

type staffOnly map[string]bool

func (s staffOnly) IsAuthorized(_ context.Context, userID string) (bool, error) {
	return s[userID], nil
}

type emptyRecords struct{}

func (emptyRecords) List(_ context.Context, q records.Query) (pagination.Page[model.EnrichedRecord], error) {
	p, err := pagination.New(q.ItemsPerPage, pagination.Items([]model.EnrichedRecord{}))
	if err != nil {
		return pagination.Page[model.EnrichedRecord]{}, err
	}
	return p.Page(context.Background(), q.Page)
}

func (emptyRecords) Get(_ context.Context, cat model.Category, id int64) (*model.EnrichedRecord, error) {
	return &model.EnrichedRecord{PunishmentRecord: model.PunishmentRecord{ID: id}, Category: cat.ID}, nil
}

func (emptyRecords) Latest(context.Context, model.Category, int) ([]model.EnrichedRecord, error) {
	return nil, nil
}

func (emptyRecords) Since(context.Context, model.Category, int64, int) ([]model.EnrichedRecord, error) {
	return nil, nil
}

type noPlayers struct{}

func (noPlayers) Resolve(context.Context, string) (*model.Player, error) { return nil, nil }

type noStats struct{}

func (noStats) Snapshot(context.Context) (*model.InstanceStats, error) {
	return &model.InstanceStats{}, nil
}

func newTestRouter() http.Handler {
	gin.SetMode(gin.TestMode)
	return setupRouter(routerDeps{
		Verifier:     tokenVerifier{"staff-token": "user_staff", "guest-token": "user_guest"},
		Authorizer:   staffOnly{"user_staff": true},
		Records:      emptyRecords{},
		Players:      noPlayers{},
		Shares:       share.NewStore(nil, "test", time.Hour),
		Stats:        noStats{},
		PageSizes:    handler.PageSizes{Default: 10, Max: 100},
		FeedInterval: time.Second,
		Log:          zerolog.Nop(),
	})
}

func TestRouterAccess(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", "", http.StatusOK},
		{"metrics are public", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"records need a session", http.MethodGet, "/api/v1/records?category=ban", "", "", http.StatusUnauthorized},
		{"records need the role", http.MethodGet, "/api/v1/records?category=ban", "", "guest-token", http.StatusForbidden},
		{"staff can list records", http.MethodGet, "/api/v1/records?category=ban", "", "staff-token", http.StatusOK},
		{"me needs only a session", http.MethodGet, "/api/v1/me", "", "guest-token", http.StatusOK},
		{"unknown share", http.MethodGet, "/api/v1/shares/abcdefghijklmnop", "", "", http.StatusNotFound},
		{"sharing without redis", http.MethodPost, "/api/v1/shares", `{"category":"ban","record":1}`, "staff-token", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

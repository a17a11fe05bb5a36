package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"litebans-web/internal/model"
)

var ErrNotFound = errors.New("player not found")

// Lookup resolves a UUID or username against an external profile service.
type Lookup interface {
	Lookup(ctx context.Context, ref string) (*model.Player, error)
}

type profileResponse struct {
	UniqueID string `json:"uniqueId"`
	Username string `json:"username"`
}

// HTTPLookup queries a restfulmc-style profile API: GET {base}/player/{ref}.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
	avatars Avatars
}

func NewHTTPLookup(baseURL string, timeout time.Duration) *HTTPLookup {
	base := strings.TrimRight(baseURL, "/")
	return &HTTPLookup{
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
		avatars: Avatars{BaseURL: base},
	}
}

func (l *HTTPLookup) Lookup(ctx context.Context, ref string) (*model.Player, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/player/"+url.PathEscape(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request for %s: %w", ref, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("profile service returned %d for %s: %s", resp.StatusCode, ref, strings.TrimSpace(string(body)))
	}

	var p profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", ref, err)
	}
	if p.UniqueID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}

	id := NormalizeUUID(p.UniqueID)
	return &model.Player{
		UUID:      id,
		Username:  p.Username,
		AvatarURL: l.avatars.Head(id),
	}, nil
}

package auth

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
)

var ErrNoLinkedAccount = errors.New("no linked guild account")

// RoleSource lists the guild roles of an identity provider user.
type RoleSource interface {
	MemberRoles(ctx context.Context, userID string) ([]string, error)
}

type GuildRolesOptions struct {
	IdPAPIURL     string
	IdPSecretKey  string
	OAuthProvider string
	DiscordAPIURL string
	GuildID       string
	Timeout       time.Duration
}

// GuildRoles exchanges a user id for the OAuth token the identity provider
// holds for the linked Discord account, then reads the user's member object
// in the required guild.
type GuildRoles struct {
	opts   GuildRolesOptions
	client *http.Client
}

func NewGuildRoles(opts GuildRolesOptions) *GuildRoles {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	opts.IdPAPIURL = strings.TrimRight(opts.IdPAPIURL, "/")
	opts.DiscordAPIURL = strings.TrimRight(opts.DiscordAPIURL, "/")
	return &GuildRoles{opts: opts, client: &http.Client{Timeout: opts.Timeout}}
}

type oauthToken struct {
	Token string `json:"token"`
}

type guildMember struct {
	Roles []string `json:"roles"`
}

func (g *GuildRoles) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	token, err := g.oauthToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/users/@me/guilds/%s/member", g.opts.DiscordAPIURL, url.PathEscape(g.opts.GuildID))
	var member guildMember
	status, err := g.getJSON(ctx, endpoint, token, &member)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("guild member: %w", err)
	}
	return member.Roles, nil
}

func (g *GuildRoles) oauthToken(ctx context.Context, userID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/users/%s/oauth_access_tokens/%s",
		g.opts.IdPAPIURL, url.PathEscape(userID), url.PathEscape(g.opts.OAuthProvider))

	var tokens []oauthToken
	if _, err := g.getJSON(ctx, endpoint, g.opts.IdPSecretKey, &tokens); err != nil {
		return "", fmt.Errorf("oauth token: %w", err)
	}
	if len(tokens) == 0 || tokens[0].Token == "" {
		return "", ErrNoLinkedAccount
	}
	return tokens[0].Token, nil
}

func (g *GuildRoles) getJSON(ctx context.Context, endpoint, bearer string, dst any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("GET %s: status %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return resp.StatusCode, nil
}

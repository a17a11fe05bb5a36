package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	jwksRefreshInterval = time.Hour
	defaultLeeway       = 5 * time.Second
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Session is a verified identity provider session.
type Session struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid,omitempty"`
}

// SessionVerifier checks RS256 session tokens against the identity
// provider's published JWKS.
type SessionVerifier struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
}

// NewSessionVerifier starts a background JWKS refresh. Startup does not fail
// when the identity provider is briefly unreachable.
func NewSessionVerifier(ctx context.Context, jwksURL, issuer string, log zerolog.Logger) (*SessionVerifier, error) {
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    &http.Client{Timeout: 10 * time.Second},
		Ctx:                       ctx,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			log.Error().Err(err).Str("url", jwksURL).Msg("JWKS refresh failed")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Ctx:     ctx,
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("create keyfunc: %w", err)
	}
	return NewSessionVerifierWithKeyfunc(k, issuer), nil
}

func NewSessionVerifierWithKeyfunc(k keyfunc.Keyfunc, issuer string) *SessionVerifier {
	return &SessionVerifier{jwks: k, issuer: issuer, leeway: defaultLeeway}
}

func (v *SessionVerifier) Verify(ctx context.Context, tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.jwks.KeyfuncCtx(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid claims", ErrUnauthenticated)
	}

	s := &Session{UserID: claims.Subject, SessionID: claims.SessionID}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"litebans-web/internal/auth"
)

const (
	// SessionCookie is where the identity provider's frontend SDK keeps the session token.
	SessionCookie = "__session"

	ContextUserID     = "userID"
	ContextSessionID  = "sessionID"
	ContextAuthorized = "authorized"
)

type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Session, error)
}

type Authorizer interface {
	IsAuthorized(ctx context.Context, userID string) (bool, error)
}

// Authenticate validates the session token and attaches the user to the context.
func Authenticate(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := getToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		session, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, session.UserID)
		c.Set(ContextSessionID, session.SessionID)
		c.Next()
	}
}

// OptionalAuthenticate attaches the user when a valid token is present and
// lets anonymous requests through.
func OptionalAuthenticate(verifier SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, err := getToken(c); err == nil {
			if session, err := verifier.Verify(c.Request.Context(), tokenString); err == nil {
				c.Set(ContextUserID, session.UserID)
				c.Set(ContextSessionID, session.SessionID)
			}
		}
		c.Next()
	}
}

// RequireAuthorized rejects users without the required guild role. It must
// run after Authenticate.
func RequireAuthorized(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
			c.Abort()
			return
		}

		ok, err := authorizer.IsAuthorized(c.Request.Context(), userID)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to verify guild membership"})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "missing required role"})
			c.Abort()
			return
		}

		c.Set(ContextAuthorized, true)
		c.Next()
	}
}

func getToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1], nil
		}
	}

	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, nil
	}

	// websocket clients cannot set headers
	token := c.Query("token")
	if token != "" {
		return token, nil
	}

	return "", errors.New("authorization token required")
}

// CORSMiddleware sets up CORS headers
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

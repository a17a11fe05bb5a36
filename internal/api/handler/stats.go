package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"litebans-web/internal/model"
	"litebans-web/internal/player"
)

type StatsProvider interface {
	Snapshot(ctx context.Context) (*model.InstanceStats, error)
}

type PlayerResolver interface {
	Resolve(ctx context.Context, ref string) (*model.Player, error)
}

func GetStats(provider StatsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := provider.Snapshot(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// GetPlayer resolves a UUID or username to a profile.
func GetPlayer(resolver PlayerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Param("query")
		if !player.IsUUID(query) && !player.IsName(query) && !player.IsConsole(query) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expected a UUID or player name"})
			return
		}

		p, err := resolver.Resolve(c.Request.Context(), query)
		if errors.Is(err, player.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "player not found"})
			return
		}
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "profile service unavailable"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

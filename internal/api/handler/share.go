package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"litebans-web/internal/api/middleware"
	"litebans-web/internal/model"
	"litebans-web/internal/share"
)

type ShareStore interface {
	Create(ctx context.Context, req share.Request) (*model.RecordShare, error)
	Get(ctx context.Context, key string) (*model.RecordShare, error)
}

type Authorizer interface {
	IsAuthorized(ctx context.Context, userID string) (bool, error)
}

type createShareRequest struct {
	Category  string `json:"category" binding:"required"`
	Record    int64  `json:"record" binding:"required,min=1"`
	Protected bool   `json:"protected"`
}

// CreateShare stores a short-lived link to an existing record.
func CreateShare(store ShareStore, svc RecordService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createShareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		category, ok := model.LookupCategory(req.Category)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
			return
		}

		if _, err := svc.Get(c.Request.Context(), category, req.Record); err != nil {
			writeError(c, err)
			return
		}

		created, err := store.Create(c.Request.Context(), share.Request{
			Category:  category.ID,
			Record:    req.Record,
			Protected: req.Protected,
			Creator:   c.GetString(middleware.ContextUserID),
		})
		if errors.Is(err, share.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sharing is not configured"})
			return
		}
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create share"})
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// GetShare resolves a share key to the shared record. Protected shares need a
// signed-in user holding the required role.
func GetShare(store ShareStore, svc RecordService, authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := store.Get(c.Request.Context(), c.Param("key"))
		if errors.Is(err, share.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "share not found"})
			return
		}
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load share"})
			return
		}

		if s.Protected {
			userID := c.GetString(middleware.ContextUserID)
			if userID == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
				return
			}
			ok, err := authorizer.IsAuthorized(c.Request.Context(), userID)
			if err != nil {
				c.Error(err)
				c.JSON(http.StatusBadGateway, gin.H{"error": "failed to verify guild membership"})
				return
			}
			if !ok {
				c.JSON(http.StatusForbidden, gin.H{"error": "missing required role"})
				return
			}
		}

		category, ok := model.LookupCategory(s.Category)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "share not found"})
			return
		}
		rec, err := svc.Get(c.Request.Context(), category, s.Record)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"share": s, "record": rec})
	}
}

// GetMe reports the signed-in user and whether they may browse records.
func GetMe(authorizer Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(middleware.ContextUserID)
		ok, err := authorizer.IsAuthorized(c.Request.Context(), userID)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to verify guild membership"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": userID, "authorized": ok})
	}
}

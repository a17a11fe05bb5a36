package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"litebans-web/internal/model"
	"litebans-web/internal/pagination"
	"litebans-web/internal/records"
	"litebans-web/internal/repository"
)

type RecordService interface {
	List(ctx context.Context, q records.Query) (pagination.Page[model.EnrichedRecord], error)
	Get(ctx context.Context, cat model.Category, id int64) (*model.EnrichedRecord, error)
}

type PageSizes struct {
	Default int
	Max     int
}

type recordListResponse struct {
	Items    []model.EnrichedRecord  `json:"items"`
	Metadata pagination.PageMetadata `json:"metadata"`
	// Time is the server-side processing time in milliseconds.
	Time int64 `json:"time"`
}

// ListRecords serves one page of a category, optionally filtered to a player
// and sorted by a record field.
func ListRecords(svc RecordService, sizes PageSizes) gin.HandlerFunc {
	return func(c *gin.Context) {
		before := time.Now()

		categoryID := c.Query("category")
		if categoryID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		category, ok := model.LookupCategory(categoryID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
			return
		}

		page, err := queryInt(c, "page", 1)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		itemsPerPage, err := queryInt(c, "itemsPerPage", sizes.Default)
		if err != nil || itemsPerPage < 1 || itemsPerPage > sizes.Max {
			c.JSON(http.StatusBadRequest, gin.H{"error": "itemsPerPage must be between 1 and " + strconv.Itoa(sizes.Max)})
			return
		}
		sortOrder, err := records.ParseSortOrder(c.Query("sortOrder"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sortOrder must be asc or desc"})
			return
		}

		result, err := svc.List(c.Request.Context(), records.Query{
			Category:     category,
			Page:         page,
			ItemsPerPage: itemsPerPage,
			Search:       c.Query("search"),
			SortBy:       c.Query("sortBy"),
			SortOrder:    sortOrder,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, recordListResponse{
			Items:    result.Items,
			Metadata: result.Metadata,
			Time:     time.Since(before).Milliseconds(),
		})
	}
}

// GetRecord serves a single enriched record.
func GetRecord(svc RecordService) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := model.LookupCategory(c.Param("category"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
			return
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record ID"})
			return
		}

		rec, err := svc.Get(c.Request.Context(), category, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func ListCategories() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"categories": model.Categories()})
	}
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// writeError maps service errors to responses. Transient connection resets
// keep their own error code so clients can retry.
func writeError(c *gin.Context, err error) {
	c.Error(err)
	switch {
	case errors.Is(err, repository.ErrConnectionReset):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ECONNRESET"})
	case errors.Is(err, pagination.ErrInvalidPage), errors.Is(err, pagination.ErrInvalidPageSize):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page number"})
	case errors.Is(err, repository.ErrInvalidSort):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort field"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(499)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

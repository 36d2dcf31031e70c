package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/ingest"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/query"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/tools/timecodec"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handlers struct {
	ingest *ingest.Service
	query  *query.Service
	logger *zap.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   timecodec.Format(timecodec.Now()),
	})
}

func (h *handlers) ingestReading(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), c.Param("device_id"), body)
	if err != nil {
		if ingest.IsClientError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reading"})
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"status":    "ok",
		"device_id": result.DeviceID,
		"ts":        result.TS,
		"created":   result.Created,
	})
}

func (h *handlers) listReadings(c *gin.Context) {
	views, err := h.query.ListReadings(
		c.Request.Context(),
		c.Param("device_id"),
		c.Query("since"),
		c.Query("until"),
		parseLimit(c.Query("limit"), query.DefaultListLimit),
	)
	if err != nil {
		h.logger.Error("failed to list readings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query readings"})
		return
	}

	c.JSON(http.StatusOK, views)
}

func (h *handlers) aggregate(c *gin.Context) {
	points, err := h.query.Aggregate(
		c.Request.Context(),
		parseLimit(c.Query("limit"), query.DefaultAggregateLimit),
	)
	if err != nil {
		h.logger.Error("failed to aggregate readings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query aggregate"})
		return
	}

	c.JSON(http.StatusOK, points)
}

func (h *handlers) latest(c *gin.Context) {
	view, err := h.query.Latest(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to query latest reading", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query latest reading"})
		return
	}

	// An empty store answers an empty object, not null and not 404.
	if view == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) exportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	if err := h.query.ExportCSV(c.Request.Context(), c.Writer); err != nil {
		// The header line is already on the wire; all that is left is to
		// log and cut the response short.
		h.logger.Error("csv export aborted", zap.Error(err))
		c.Abort()
	}
}

// parseLimit reads a caller-supplied row cap, falling back to the default
// when missing or malformed.
func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

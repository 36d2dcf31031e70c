package httpapi

import (
	"net/http"
	"path/filepath"

	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/config"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/ingest"
	"github.com/andrelbdutra/Temperature-DataLog-IoT/internal/query"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires the HTTP surface: the versioned JSON/CSV API, the
// prometheus endpoint and the static dashboard.
func NewRouter(cfg *config.Config, logger *zap.Logger, ingestSvc *ingest.Service, querySvc *query.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	h := &handlers{ingest: ingestSvc, query: querySvc, logger: logger}

	api := router.Group("/api/v1")
	{
		api.GET("/health", h.health)
		api.POST("/devices/:device_id/readings", h.ingestReading)
		api.GET("/devices/:device_id/readings", h.listReadings)
		api.GET("/readings/aggregate", h.aggregate)
		api.GET("/readings/latest", h.latest)
		api.GET("/export.csv", h.exportCSV)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Dashboard is opaque static content; favicon answered empty to keep
	// browser noise out of the logs.
	router.StaticFile("/", filepath.Join(cfg.StaticDir, "index.html"))
	router.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return router
}

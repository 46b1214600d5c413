package main

import (
	"log/slog"
	"net/http"

	"logistics-platform/internal/httpapi"
	"logistics-platform/internal/obs"
	"logistics-platform/pkg/logger"
	"logistics-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// newRouter wires middleware and routes.
// Keep this file free of business logic. Handlers live in internal/httpapi.
func newRouter(log *slog.Logger, metrics *obs.Metrics, h *httpapi.Handlers, ready utils.Check) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Instrument())
	r.Use(httpapi.MaxBodyBytes(maxBodyBytes))

	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := ready(c.Request.Context()); err != nil {
			logger.FromGin(c).Warn("readiness check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	h.Routes(r)
	return r
}

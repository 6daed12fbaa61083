// Package server exposes the index and the review pipeline over HTTP.
package server

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-reviewer/internal/logger"
	"github.com/spigell/resume-reviewer/internal/report"
)

type RouterConfig struct {
	Index   Index
	Reviews Reviewer
	Report  report.Options
	Logger  *zap.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := logger.OrNop(cfg.Logger)
	h := &Handlers{
		index:   cfg.Index,
		reviews: cfg.Reviews,
		report:  cfg.Report,
		logger:  log,
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	router.GET("/healthz", h.Health)
	api := router.Group("/api")
	{
		api.GET("/roles", h.Roles)
		api.POST("/match", h.Match)
		api.POST("/query", h.Query)
		api.POST("/review", h.Review)
		api.POST("/review/report", h.Report)
	}

	return router
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		fields := []zap.Field{
			zap.String("method", strings.ToUpper(c.Request.Method)),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("took", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			fields = append(fields, zap.String("errors", errs.String()))
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ginjaninja78/fiv-automation/internal/api/handlers"
	"github.com/ginjaninja78/fiv-automation/internal/api/responses"
	"github.com/ginjaninja78/fiv-automation/internal/config"
	"github.com/ginjaninja78/fiv-automation/internal/converter"
)

// NewRouter wires the handlers onto a gin engine.
func NewRouter(cfg *config.MainConfig, service *converter.Service, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	responses.InitLogger(logger)

	router := gin.New()
	maxBody := cfg.Server.MaxUploadMB << 20
	router.Use(gin.Recovery(), requestLogger(logger), bodyLimit(maxBody))
	router.MaxMultipartMemory = maxBody

	fivHandler := handlers.NewFIVHandler(service)
	apiV1 := router.Group("/api/v1")
	fivHandler.Register(apiV1)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "service": "fiv-automation"})
	})

	return router
}

// bodyLimit rejects request bodies larger than n bytes while they are read.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

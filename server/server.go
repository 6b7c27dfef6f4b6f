package server

import (
	"context"
	"net/http"
	"time"

	"goshortcode/controllers"
	"goshortcode/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTimeout  = 30 * time.Second
	requestIDHeader = "X-Request-ID"
)

type Config struct {
	RedirectOrigin string
	RequestTimeout time.Duration
}

// NewRouter wires the HTTP routes. m may be nil, in which case /metrics is not served.
func NewRouter(store controllers.Shortener, db controllers.Pinger, m *metrics.Metrics, logger *zap.Logger, cfg Config) *gin.Engine {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(requestID(), accessLog(logger), gin.Recovery())

	health := controllers.HealthController{DB: db, Log: logger}
	router.GET("/health", health.Status)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	url := controllers.UrlController{
		Store:          store,
		Log:            logger,
		RedirectOrigin: cfg.RedirectOrigin,
	}

	router.GET("/", url.Welcome)
	router.POST("/api/shorten/", withTimeout(cfg.RequestTimeout), url.Shorten)
	router.GET("/:short_code/", withTimeout(cfg.RequestTimeout), url.Redirect)

	return router
}

// withTimeout bounds the request context; handlers see the deadline through
// the repository calls they make.
func withTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDHeader)),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

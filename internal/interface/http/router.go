package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/helpline/faqmatch/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	metrics := NewMetrics()

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		metrics.middleware(),
		corsMiddleware(nil),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthcheck", handler.Healthcheck)
	router.GET("/metrics", metrics.handler())

	authed := router.Group("/", authMiddleware(cfg.Auth))
	{
		authed.GET("/auth-healthcheck", handler.AuthHealthcheck)

		inbound := authed.Group("/inbound")
		{
			inbound.POST("/check", handler.CheckInbound)
			inbound.GET("/:inbound_id/:page_number", handler.GetInboundPage)
			inbound.PUT("/feedback", handler.AddFeedback)
		}

		internal := authed.Group("/internal")
		{
			internal.GET("/refresh-faqs", handler.RefreshCorpus)
			internal.GET("/refresh-language-context", handler.RefreshLanguageContext)
			internal.POST("/export-inbounds", handler.ExportInbounds)
		}

		// Tag tooling stays off production deployments.
		if !isProduction(cfg.HTTP.Environment) {
			tools := authed.Group("/tools")
			{
				tools.POST("/check-new-tags", handler.CheckNewTags)
				tools.POST("/validate-tags", handler.ValidateTags)
			}
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func isProduction(environment string) bool {
	return strings.EqualFold(environment, "production") || strings.EqualFold(environment, "prod")
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}

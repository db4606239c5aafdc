package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jlin-dev/carbonlens/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		errorHandlingMiddleware(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		rateLimitMiddleware(cfg.HTTP.RateLimit, handler.logger),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1", authMiddleware(cfg.Auth))
	{
		api.GET("/analytics/dashboard", handler.Dashboard)
		api.GET("/analytics/timeline", handler.Timeline)
		api.GET("/analytics/categories", handler.Categories)
		api.GET("/analytics/emitters", handler.Emitters)
		api.GET("/analytics/radar", handler.Radar)
		api.GET("/analytics/export", handler.Export)

		api.GET("/recommendations", handler.Recommendations)
		api.POST("/recommendations/:id/save", handler.SaveRecommendation)
		api.POST("/recommendations/:id/implement", handler.ImplementRecommendation)
		api.DELETE("/recommendations", handler.InvalidateRecommendations)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

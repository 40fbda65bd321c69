package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/inventory-optimizer/internal/api/handlers"
	"github.com/andresuchdata/inventory-optimizer/internal/api/middleware"
	"github.com/andresuchdata/inventory-optimizer/internal/metrics"
	"github.com/andresuchdata/inventory-optimizer/internal/service"
)

type Services struct {
	ReorderService *service.ReorderService
}

type RouterConfig struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	UploadDir      string
	Metrics        *metrics.Collector
	Logger         zerolog.Logger
}

func NewRouter(services *Services, cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.NoRoute(func(c *gin.Context) {
		errorResponse(c, cfg.Logger, http.StatusNotFound, "route not found")
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ReorderService != nil {
		reorderHandler := handlers.NewReorderHandler(services.ReorderService, handlers.HandlerConfig{
			MaxUploadBytes: cfg.MaxUploadBytes,
			UploadDir:      cfg.UploadDir,
			Logger:         cfg.Logger,
		})

		apiGroup.POST("/uploads", reorderHandler.Upload)

		recommendationGroup := apiGroup.Group("/recommendations")
		{
			recommendationGroup.GET("", reorderHandler.GetRecommendations)
			recommendationGroup.GET("/download", reorderHandler.DownloadRecommendations)
		}

		productGroup := apiGroup.Group("/products")
		{
			productGroup.GET("", reorderHandler.GetProducts)
			productGroup.GET("/:product/trend", reorderHandler.GetTrend)
		}
	}

	return router
}

func errorResponse(c *gin.Context, log zerolog.Logger, statusCode int, message string) {
	log.Debug().Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}

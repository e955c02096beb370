package api

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"docqa/internal/config"
	"docqa/pkg/httpmiddleware"
	"docqa/pkg/ratelimiter"
)

// NewRouter builds the gin engine with CORS, optional rate limiting
// and all service routes.
func NewRouter(api *API, cfg config.ServerConfig) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	if cfg.RateLimit.Enabled {
		limiter, err := ratelimiter.New(cfg.RateLimit.Algorithm, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		router.Use(httpmiddleware.RateLimit(limiter))
	}

	router.GET("/health", api.HealthHandler)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/upload", api.UploadHandler)
		v1.POST("/ask", api.AskHandler)
		v1.GET("/documents", api.ListDocumentsHandler)
		v1.GET("/documents/:id", api.GetDocumentHandler)
		v1.DELETE("/documents/:id", api.DeleteDocumentHandler)
	}

	return router, nil
}

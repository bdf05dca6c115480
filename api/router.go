package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pagecap/api/handler"
	"github.com/use-agent/pagecap/api/middleware"
	"github.com/use-agent/pagecap/cache"
	"github.com/use-agent/pagecap/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(rn handler.Runner, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(rn, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/capture", handler.Capture(rn, cfg.Output.Dir, cc, cfg.Webhook))
	protected.GET("/artifacts/:name", handler.Artifact(cfg.Output.Dir))

	return r
}

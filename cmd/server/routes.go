package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/common/handlers"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/pkg/config"
)

func newRouter(cfg *config.Config, c *components, log *zap.Logger) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	router.Use(c.metrics.Middleware())
	router.NoRoute(middleware.NotFoundHandler())

	handlers.NewHealthHandler(c.health).RegisterRoutes(router)
	router.GET("/metrics", gin.WrapH(c.metrics.Handler()))

	api := router.Group("/api/v1", c.guards.Limits.General)
	api.GET("/modules", c.modules.Endpoint())
	c.modules.Mount(api, c.guards)
	return router
}

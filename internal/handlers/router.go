package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/signalhub/config"
	"github.com/mossy-p/signalhub/internal/middleware"
	"github.com/rs/zerolog/log"
)

// NewRouter wires the HTTP surface: health, the signaling socket and, when a
// JWT secret is configured, the operator API.
func NewRouter(ctx context.Context, cfg *config.Config, hub *Hub) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/ws", NewSignalingHandler(ctx, hub, cfg.WS).HandleSignaling)

	if cfg.JWTSecret == "" {
		log.Info().Str("module", "router").Msg("jwt_secret not set, operator API disabled")
		return router
	}
	rooms := NewRoomsHandler(hub)
	api := router.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	{
		api.GET("/rooms", rooms.ListRooms)
		api.GET("/rooms/:name", rooms.GetRoom)
		api.DELETE("/rooms/:name", rooms.DeleteRoom)
	}
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("module", "http").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

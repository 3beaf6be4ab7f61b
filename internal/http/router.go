// Package http is the REST surface of the service: gin router, handlers
// and the domain-error-to-status translation.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the API routes. Auth endpoints are public; user
// management requires a bearer access token.
func NewRouter(logger *slog.Logger, auth AuthService, users UserService) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	authHandler := NewAuthHandler(logger, auth)
	userHandler := NewUserHandler(logger, users)

	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)

	userGroup := api.Group("/users")
	userGroup.Use(BearerAuth(auth, logger))
	userGroup.GET("", userHandler.List)
	userGroup.GET("/:id", userHandler.Get)
	userGroup.DELETE("/:id", userHandler.Delete)

	return router
}

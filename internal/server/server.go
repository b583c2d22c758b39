// Package server assembles the gin router and HTTP middleware chain.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	gatehandler "authgate/internal/gate/handler"
	healthhandler "authgate/internal/health/handler"
	"authgate/internal/observability"
	"authgate/internal/security"
)

// Deps are the handlers and middleware inputs the router needs.
type Deps struct {
	Auth   *gatehandler.Handler
	Health *healthhandler.Handler
	Tokens *security.TokenProvider
	Logger *observability.Logger
}

// NewRouter builds the gin engine with the full middleware chain.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		observability.Recover(d.Logger),
		observability.RequestLogging(d.Logger),
		observability.SecurityHeaders(),
		otelgin.Middleware("authgate"),
	)

	router.GET("/healthz", d.Health.Healthz)

	auth := router.Group("/v1/auth")
	{
		auth.POST("/login", d.Auth.Login)
		auth.POST("/refresh", d.Auth.Refresh)
		auth.POST("/logout", RequireAuth(d.Tokens), d.Auth.Logout)
	}

	return router
}

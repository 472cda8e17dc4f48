// README: HTTP server assembly: middleware chain and the role-scoped route table.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"waterline/internal/http/handlers"
	"waterline/internal/http/middleware"
	"waterline/internal/infra"
	"waterline/internal/modules/metrics"
	"waterline/internal/modules/order"
	"waterline/internal/modules/roles"
	"waterline/internal/modules/settings"
)

// Server bundles the services behind the HTTP surface.
type Server struct {
	verifier infra.TokenVerifier
	resolver middleware.RoleResolver
	logger   *slog.Logger

	orders   *handlers.OrderHandler
	driver   *handlers.DriverHandler
	owner    *handlers.OwnerHandler
	metrics  *handlers.MetricsHandler
	settings *handlers.SettingsHandler
}

type Deps struct {
	Verifier  infra.TokenVerifier
	Roles     *roles.Service
	Directory handlers.DriverDirectory
	Orders    *order.Service
	Watcher   order.Watcher
	Events    handlers.EventSource
	Metrics   *metrics.Service
	Settings  *settings.Service
	Logger    *slog.Logger
}

func NewServer(d Deps) *Server {
	return &Server{
		verifier: d.Verifier,
		resolver: d.Roles,
		logger:   d.Logger,
		orders:   handlers.NewOrderHandler(d.Orders),
		driver:   handlers.NewDriverHandler(d.Orders, d.Watcher, d.Roles),
		owner:    handlers.NewOwnerHandler(d.Orders, d.Watcher, d.Directory, d.Events),
		metrics:  handlers.NewMetricsHandler(d.Metrics),
		settings: handlers.NewSettingsHandler(d.Settings),
	}
}

// Routes builds the engine. Every /api route passes token auth; the driver
// and owner groups additionally re-resolve the caller's role per request.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestIDMiddleware(),
		middleware.Logging(s.logger),
		middleware.Recovery(s.logger),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Settings reads are public so the customer app can show pricing and the
	// contact card before sign-in.
	r.GET("/api/settings", s.settings.Get)

	api := r.Group("/api", middleware.Auth(s.verifier))
	{
		api.POST("/orders", s.orders.Create)
		api.GET("/orders/:id", s.orders.Get)
		api.GET("/customers/:uid/orders", s.orders.History)

		api.PUT("/settings", middleware.RequireRole(s.resolver, roles.RoleOwner), s.settings.Put)

		driver := api.Group("/driver", middleware.RequireRole(s.resolver, roles.RoleDriver))
		{
			driver.GET("/queue", s.driver.Queue)
			driver.GET("/orders", s.driver.Mine)
			driver.POST("/orders/:id/start", s.driver.Start)
			driver.POST("/orders/:id/delivered", s.driver.Delivered)
		}

		owner := api.Group("/owner", middleware.RequireRole(s.resolver, roles.RoleOwner))
		{
			owner.GET("/orders", s.owner.List)
			owner.POST("/orders/:id/confirm", s.owner.Confirm)
			owner.POST("/orders/:id/revert", s.owner.Revert)
			owner.POST("/orders/:id/cancel", s.owner.Cancel)
			owner.POST("/orders/:id/assign", s.owner.Assign)
			owner.GET("/orders/:id/events", s.owner.Events)
			owner.GET("/drivers", s.owner.Drivers)
			owner.GET("/metrics/today", s.metrics.Today)
		}
	}

	return r
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/room-booking-sync/internal/handler"
	"github.com/iliyamo/room-booking-sync/internal/middleware"
	"github.com/iliyamo/room-booking-sync/internal/utils"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// liveness at /healthz and database readiness at /readyz.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterPublic registers the storefront calendar. mws run in order before
// the handler; the caller passes the rate limiter and response cache.
func RegisterPublic(e *echo.Echo, h *handler.AvailabilityHandler, mws ...echo.MiddlewareFunc) {
	e.GET("/availability", h.Get, mws...)
}

// RegisterWebhooks registers the storefront webhook receiver. verify must be
// the signature gate; it always runs last, directly before the handler, so
// nothing can consume the body before it is authenticated.
func RegisterWebhooks(e *echo.Echo, h *handler.WebhookHandler, verify echo.MiddlewareFunc, mws ...echo.MiddlewareFunc) {
	g := e.Group("/webhooks", mws...)
	g.POST("/order_paid", h.OrderPaid, verify)
}

// RegisterAuth registers the admin login under /v1/auth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
}

// RegisterAdmin registers the admin API under /v1/admin. Every route
// requires a valid access token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(utils.RoleAdmin))

	g.GET("/rooms", h.ListRooms)
	g.POST("/rooms", h.CreateRoom)
	g.DELETE("/rooms/:product_id", h.DeleteRoom)
	g.GET("/bookings", h.ListBookings)
}

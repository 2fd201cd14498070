package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-relay/internal/api/http/handlers"
	"github.com/spec-kit/ticket-relay/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Directory      *handlers.DirectoryHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	authGroup := api.Group("/auth")
	authGroup.Get("/check", cfg.Auth.Check)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)

	api.Post("/reportee", cfg.Auth.Reportee)
	api.Get("/teams", cfg.Directory.Teams)
	api.Get("/rating", cfg.Directory.Rating)
	api.Get("/dashboard", cfg.Directory.Dashboard)

	tickets := api.Group("/tickets")
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", auth.RequireCredential(), cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/accept", auth.RequireCredential(), cfg.Tickets.AcceptTicket)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)
	tickets.Get("/:id/audit", cfg.Tickets.ListAudit)
}

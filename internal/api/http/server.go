package http

import (
	"github.com/gofiber/fiber/v2"
)

// bodyLimit bounds request bodies, attachments included.
const bodyLimit = 16 * 1024 * 1024

// AppConfig carries what NewApp needs besides routes.
type AppConfig struct {
	Name        string
	Middlewares MiddlewareConfig
	Routes      RouteConfig
}

// NewApp builds the Fiber application with the global middleware chain and
// every route registered.
func NewApp(cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.Name,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		// request strings outlive the handler in queued events
		Immutable: true,
	})
	RegisterMiddlewares(app, cfg.Middlewares)
	RegisterRoutes(app, cfg.Routes)
	app.Use(func(c *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
	return app
}

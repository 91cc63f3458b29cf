package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/trackmap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// RouterOptions tunes the middleware chain.
type RouterOptions struct {
	RateLimit int // requests per minute per IP, 0 disables limiting
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies, opts RouterOptions) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			Next: func(c *fiber.Ctx) bool {
				return websocket.IsWebSocketUpgrade(c)
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Post("/views", timeout.NewWithContext(OpenViewHandler(deps), requestTimeout))
	v1.Get("/views", ListViewsHandler(deps))
	v1.Get("/views/:id", GetViewHandler(deps))
	v1.Delete("/views/:id", CloseViewHandler(deps))
	v1.Post("/views/:id/refresh", RefreshViewHandler(deps))
	v1.Post("/views/:id/marker", MoveMarkerHandler(deps))
	v1.Post("/views/:id/save", timeout.NewWithContext(SaveViewHandler(deps), requestTimeout))

	v1.Get("/clients", timeout.NewWithContext(ListClientsHandler(deps), requestTimeout))
	v1.Post("/clients/:id/location", timeout.NewWithContext(UpdateClientLocationHandler(deps), requestTimeout))

	v1.Post("/vehicles/:id/sync", timeout.NewWithContext(SyncVehicleHandler(deps), 2*requestTimeout))

	// Legacy RPC endpoints
	app.Post("/get_clients_with_location", timeout.NewWithContext(LegacyClientsHandler(deps), requestTimeout))
	app.Post("/update_partner_location", timeout.NewWithContext(LegacyUpdateLocationHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/views/:id", websocket.New(ViewSocketHandler(deps)))
}

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"
	"github.com/samirrijal/pinmap/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Map clients pan a lot.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness: unauthenticated, no timeout
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	requireAuth := AuthMiddleware(deps.Auth)
	withTimeout := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1", requireAuth)
	v1.Get("/pins", withTimeout(ListPinsHandler(deps)))
	v1.Get("/pins/visible", withTimeout(VisiblePinsHandler(deps)))
	v1.Get("/pins/nearby", withTimeout(NearbyPinsHandler(deps)))
	v1.Get("/pins/:id", withTimeout(GetPinHandler(deps)))
	v1.Post("/pins", withTimeout(CreatePinHandler(deps)))
	v1.Patch("/pins/:id", withTimeout(UpdatePinHandler(deps)))
	v1.Delete("/pins/:id", withTimeout(DeletePinHandler(deps)))
	v1.Post("/pins/:id/photos", withTimeout(AttachPhotoHandler(deps)))
	v1.Delete("/photos/:id", withTimeout(DeletePhotoHandler(deps)))
	v1.Get("/gallery", withTimeout(GalleryHandler(deps)))
	v1.Post("/likes/toggle", withTimeout(ToggleLikeHandler(deps)))
	v1.Post("/follows/toggle", withTimeout(ToggleFollowHandler(deps)))
	v1.Get("/profiles/:id", withTimeout(GetProfileHandler(deps)))
	v1.Get("/profiles/:id/pins", withTimeout(ProfilePinsHandler(deps)))

	app.Post("/graphql", requireAuth, withTimeout(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.DocsPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/map", requireAuth, websocket.New(MapWebSocketHandler(deps)))
	app.Get("/ws/events", requireAuth, websocket.New(EventsWebSocketHandler(deps.NATS)))
}

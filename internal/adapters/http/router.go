package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/civic311/internal/pkg/metrics"
)

const handlerTimeout = 15 * time.Second

// legacyRoutes are kept for older Open311 clients.
var legacyRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/requests.json",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/requests",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
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

	app.Use(DeprecationMiddleware(legacyRoutes))
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	// Jurisdictions and boundaries. /locate is registered before /:id.
	v1.Get("/jurisdictions", withTimeout(ListJurisdictionsHandler(deps)))
	v1.Get("/jurisdictions/locate", withTimeout(LocateHandler(deps)))
	v1.Get("/jurisdictions/:id", withTimeout(GetJurisdictionHandler(deps)))
	v1.Get("/jurisdictions/:id/boundary", withTimeout(GetBoundaryHandler(deps)))
	v1.Put("/jurisdictions/:id/boundary", withTimeout(PutBoundaryHandler(deps)))
	v1.Delete("/jurisdictions/:id/boundary", withTimeout(DeleteBoundaryHandler(deps)))

	// Service requests
	v1.Post("/requests.json", withTimeout(LegacySubmitRequestHandler(deps)))
	v1.Post("/requests", withTimeout(SubmitRequestHandler(deps)))
	v1.Get("/requests/export", withTimeout(ExportRequestsHandler(deps)))
	v1.Get("/requests/nearby", withTimeout(NearbyRequestsHandler(deps)))
	v1.Get("/requests/:id", withTimeout(GetRequestHandler(deps)))

	// Projects
	v1.Post("/projects", withTimeout(CreateProjectHandler(deps)))
	v1.Get("/projects/:id", withTimeout(GetProjectHandler(deps)))

	app.Post("/graphql", withTimeout(GraphQLHandler(deps)))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}

func withTimeout(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, handlerTimeout)
}

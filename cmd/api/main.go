package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/civic311/internal/adapters/http"
	natsadapter "github.com/samirrijal/civic311/internal/adapters/nats"
	"github.com/samirrijal/civic311/internal/adapters/postgres"
	"github.com/samirrijal/civic311/internal/adapters/safesearch"
	"github.com/samirrijal/civic311/internal/adapters/valkey"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/core/usecases"
	"github.com/samirrijal/civic311/internal/pkg/config"
	"github.com/samirrijal/civic311/internal/pkg/logging"
	"github.com/samirrijal/civic311/internal/pkg/metrics"
	"github.com/samirrijal/civic311/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("civic311-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	deps := &http.Dependencies{DB: db}

	// Repos
	jurisdictionRepo := postgres.NewJurisdictionRepo(db)
	requestRepo := postgres.NewServiceRequestRepo(db)
	projectRepo := postgres.NewProjectRepo(db)
	var boundaries ports.BoundaryStore = postgres.NewBoundaryRepo(db)

	// Cache: boundaries are read through Valkey when it is reachable.
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, boundary cache disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
		boundaries = valkey.NewBoundaryStore(boundaries, vc, cfg.Routing.CacheTTLDuration())
	}

	// NATS
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	// Raw NATS connection for WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	// Media classifier
	var classifier ports.MediaClassifier
	if cfg.SafeSearch.Enabled() {
		ss := safesearch.New(safesearch.Config{
			URL:         cfg.SafeSearch.URL,
			Timeout:     cfg.SafeSearch.TimeoutDuration(),
			MaxFailures: cfg.SafeSearch.MaxFailures,
			MaxRetries:  cfg.SafeSearch.MaxRetries,
		})
		classifier = ss
		deps.Classifier = ss
	}

	// Use cases
	locator := usecases.NewLocator(boundaries, usecases.NewJurisdictionResolver())
	deps.Locator = locator
	deps.Jurisdictions = usecases.NewJurisdictionService(jurisdictionRepo, cache)
	deps.Boundaries = usecases.NewBoundaryService(jurisdictionRepo, boundaries, events)
	deps.Requests = usecases.NewServiceRequestService(requestRepo, locator, events, classifier, cfg.Routing.DefaultJurisdiction)
	deps.Projects = usecases.NewProjectService(projectRepo, jurisdictionRepo, locator)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // boundaries can be large
		AppName:      "Civic311 API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Stat())
		case <-ctx.Done():
			return
		}
	}
}

package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/civic311/internal/adapters/nats"
	"github.com/samirrijal/civic311/internal/adapters/postgres"
	"github.com/samirrijal/civic311/internal/adapters/valkey"
	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/core/usecases"
	"github.com/samirrijal/civic311/internal/pkg/config"
	"github.com/samirrijal/civic311/internal/pkg/logging"
	"github.com/samirrijal/civic311/internal/workflows"
)

func main() {
	cfg, err := config.Load("civic311-rerouter")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var boundaries ports.BoundaryStore = postgres.NewBoundaryRepo(db)
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, boundary cache disabled", "error", err)
	} else {
		defer vc.Close()
		boundaries = valkey.NewBoundaryStore(boundaries, vc, cfg.Routing.CacheTTLDuration())
	}

	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats publisher unavailable, routed events disabled", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	locator := usecases.NewLocator(boundaries, usecases.NewJurisdictionResolver())
	requests := usecases.NewServiceRequestService(
		postgres.NewServiceRequestRepo(db), locator, events, nil, cfg.Routing.DefaultJurisdiction,
	)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	// Boundary changes start (or signal) the reroute workflow.
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeBoundaryChanges(ctx, func(ctx context.Context, event *domain.BoundaryChanged) error {
		if err := workflows.StartReroute(ctx, c, cfg.Temporal.TaskQueue, cfg.Routing.RerouteBatchSize, event); err != nil {
			slog.Error("reroute trigger failed", "jurisdiction", event.JurisdictionID, "error", err)
			return err
		}
		slog.Info("reroute triggered", "jurisdiction", event.JurisdictionID, "deleted", event.Deleted)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe boundary changes: %v", err)
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.RerouteWorkflow)
	w.RegisterActivity(&workflows.RerouteActivities{Requests: requests})

	slog.Info("rerouter worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

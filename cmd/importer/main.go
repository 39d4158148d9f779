package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	natsadapter "github.com/samirrijal/civic311/internal/adapters/nats"
	"github.com/samirrijal/civic311/internal/adapters/memory"
	"github.com/samirrijal/civic311/internal/adapters/postgres"
	"github.com/samirrijal/civic311/internal/adapters/valkey"
	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/importer"
	"github.com/samirrijal/civic311/internal/pkg/config"
	"github.com/samirrijal/civic311/internal/pkg/logging"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "validate the file and report shadowed boundaries without writing")
	batchSize := flag.Int("batch-size", 100, "boundaries written per transaction")
	notify := flag.Bool("notify", true, "publish a boundary change event per imported jurisdiction")
	flag.Usage = func() {
		log.Printf("usage: importer [flags] <boundaries.geojson>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load("civic311-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("read %s: %v", flag.Arg(0), err)
	}

	entries, featureErrs, err := importer.Parse(data)
	if err != nil {
		log.Fatalf("parse: %v", err)
	}
	for _, ferr := range featureErrs {
		slog.Warn("skipping feature", "error", ferr)
	}
	slog.Info("boundary file parsed", "valid", len(entries), "invalid", len(featureErrs))

	if *dryRun {
		shadowed, err := importer.Shadowed(ctx, memory.NewBoundaryStore(), entries)
		if err != nil {
			log.Fatalf("check overlaps: %v", err)
		}
		for _, id := range shadowed {
			slog.Warn("boundary shadowed by a higher priority overlap", "jurisdiction", id)
		}
		slog.Info("dry run complete", "shadowed", len(shadowed))
		return
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	boundaries := postgres.NewBoundaryRepo(db)
	im := importer.New(postgres.NewJurisdictionRepo(db), boundaries, *batchSize)
	res, err := im.Import(ctx, entries)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	slog.Info("import complete", "jurisdictions", res.Jurisdictions, "boundaries", res.Boundaries)

	// The import wrote straight to Postgres; drop cached lookups.
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, cached boundaries expire by ttl", "error", err)
	} else {
		valkey.NewBoundaryStore(boundaries, vc, cfg.Routing.CacheTTLDuration()).Invalidate(ctx)
		vc.Close()
	}

	if !*notify {
		return
	}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, skipping boundary change events", "error", err)
		return
	}
	defer pub.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		event := &domain.BoundaryChanged{JurisdictionID: e.Jurisdiction.ID, ChangedAt: now}
		if err := pub.PublishBoundaryChanged(ctx, event); err != nil {
			slog.Error("publish boundary change", "jurisdiction", event.JurisdictionID, "error", err)
		}
	}
}

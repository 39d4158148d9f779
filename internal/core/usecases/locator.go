package usecases

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
	"github.com/samirrijal/civic311/internal/pkg/metrics"
	"github.com/samirrijal/civic311/internal/pkg/telemetry"
)

// Locator resolves points against the boundaries held by a BoundaryStore.
type Locator struct {
	boundaries ports.BoundaryStore
	resolver   *JurisdictionResolver
}

// NewLocator creates a new Locator.
func NewLocator(boundaries ports.BoundaryStore, resolver *JurisdictionResolver) *Locator {
	if resolver == nil {
		resolver = NewJurisdictionResolver()
	}
	return &Locator{boundaries: boundaries, resolver: resolver}
}

// Locate returns the jurisdiction containing p. Store failures are returned
// as errors; a point outside every boundary yields found == false.
func (l *Locator) Locate(ctx context.Context, p geospatial.Point) (jurisdictionID string, found bool, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanLocate)
	defer span.End()

	start := time.Now()
	defer func() { metrics.ResolutionDuration.Observe(time.Since(start).Seconds()) }()

	candidates, err := l.boundaries.FindBoundariesNear(ctx, p)
	if err != nil {
		metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "boundary lookup failed")
		return "", false, fmt.Errorf("find boundaries near (%g, %g): %w", p.Lat(), p.Lng(), err)
	}
	metrics.ResolutionCandidates.Observe(float64(len(candidates)))

	jurisdictionID, found = l.resolver.Resolve(p, candidates)
	span.SetAttributes(
		attribute.Int(telemetry.AttrCandidates, len(candidates)),
		attribute.Bool(telemetry.AttrFound, found),
	)
	if found {
		span.SetAttributes(attribute.String(telemetry.AttrJurisdictionID, jurisdictionID))
		metrics.ResolutionsTotal.WithLabelValues("found").Inc()
	} else {
		metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
	}
	return jurisdictionID, found, nil
}

// LocateLatLng builds a point from loosely typed input and locates it.
func (l *Locator) LocateLatLng(ctx context.Context, lat, lng any) (string, bool, error) {
	p, err := geospatial.BuildPoint(lat, lng)
	if err != nil {
		return "", false, err
	}
	return l.Locate(ctx, p)
}

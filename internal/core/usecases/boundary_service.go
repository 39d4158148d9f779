package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
	"github.com/samirrijal/civic311/internal/pkg/telemetry"
)

// BoundaryService manages jurisdiction boundaries.
type BoundaryService struct {
	jurisdictions ports.JurisdictionRepository
	boundaries    ports.BoundaryStore
	events        ports.EventPublisher
}

// NewBoundaryService creates a new BoundaryService. events may be nil.
func NewBoundaryService(jurisdictions ports.JurisdictionRepository, boundaries ports.BoundaryStore, events ports.EventPublisher) *BoundaryService {
	return &BoundaryService{jurisdictions: jurisdictions, boundaries: boundaries, events: events}
}

// Set builds a polygon from [lat, lng] tuples and replaces the jurisdiction's boundary.
func (s *BoundaryService) Set(ctx context.Context, jurisdictionID string, tuples [][]float64, priority int) (*domain.JurisdictionBoundary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanReplaceBoundary)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrJurisdictionID, jurisdictionID))

	if _, err := s.jurisdictions.GetByID(ctx, jurisdictionID); err != nil {
		return nil, fmt.Errorf("jurisdiction %s: %w", jurisdictionID, err)
	}

	polygon, err := geospatial.BuildPolygon(tuples)
	if err != nil {
		return nil, err
	}

	b := &domain.JurisdictionBoundary{
		JurisdictionID: jurisdictionID,
		Polygon:        polygon,
		Priority:       priority,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.boundaries.ReplaceBoundary(ctx, b); err != nil {
		return nil, fmt.Errorf("replace boundary: %w", err)
	}

	s.publishChanged(ctx, jurisdictionID, false)
	return b, nil
}

// Get returns the boundary of a jurisdiction.
func (s *BoundaryService) Get(ctx context.Context, jurisdictionID string) (*domain.JurisdictionBoundary, error) {
	return s.boundaries.FindBoundaryByJurisdictionID(ctx, jurisdictionID)
}

// Delete removes the boundary of a jurisdiction.
func (s *BoundaryService) Delete(ctx context.Context, jurisdictionID string) error {
	if err := s.boundaries.DeleteBoundary(ctx, jurisdictionID); err != nil {
		return err
	}
	s.publishChanged(ctx, jurisdictionID, true)
	return nil
}

func (s *BoundaryService) publishChanged(ctx context.Context, jurisdictionID string, deleted bool) {
	if s.events == nil {
		return
	}
	event := &domain.BoundaryChanged{
		JurisdictionID: jurisdictionID,
		Deleted:        deleted,
		ChangedAt:      time.Now().UTC(),
	}
	if err := s.events.PublishBoundaryChanged(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish boundary change failed", "jurisdiction_id", jurisdictionID, "error", err)
	}
}

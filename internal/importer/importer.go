// Package importer loads jurisdiction boundaries from GeoJSON
// FeatureCollections. Features carry the jurisdiction in their properties:
//
//	{"id": "springfield", "name": "Springfield", "priority": 1}
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/core/usecases"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
	"github.com/samirrijal/civic311/internal/pkg/metrics"
)

// Properties are the feature properties the importer understands.
type Properties struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Priority int    `json:"priority"`
}

// Entry is one valid feature.
type Entry struct {
	Jurisdiction domain.Jurisdiction
	Boundary     domain.JurisdictionBoundary
}

// FeatureError reports why a feature was skipped.
type FeatureError struct {
	Feature int
	ID      string
	Err     error
}

func (e *FeatureError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("feature %d (%s): %v", e.Feature, e.ID, e.Err)
	}
	return fmt.Sprintf("feature %d: %v", e.Feature, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

// Parse decodes a FeatureCollection. Invalid features are returned as
// *FeatureError values and do not stop parsing; a malformed document does.
func Parse(data []byte) ([]Entry, []error, error) {
	var fc geospatial.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, nil, fmt.Errorf("decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, nil, fmt.Errorf("expected FeatureCollection, got %q", fc.Type)
	}

	var (
		entries []Entry
		errs    []error
		seen    = make(map[string]int)
	)
	for i, f := range fc.Features {
		var props Properties
		if len(f.Properties) > 0 {
			if err := json.Unmarshal(f.Properties, &props); err != nil {
				errs = append(errs, &FeatureError{Feature: i, Err: fmt.Errorf("properties: %w", err)})
				continue
			}
		}
		props.ID = strings.TrimSpace(props.ID)
		if props.ID == "" {
			errs = append(errs, &FeatureError{Feature: i, Err: fmt.Errorf("%w: properties.id is required", domain.ErrValidation)})
			continue
		}
		if prev, dup := seen[props.ID]; dup {
			errs = append(errs, &FeatureError{Feature: i, ID: props.ID, Err: fmt.Errorf("%w: duplicate of feature %d", domain.ErrValidation, prev)})
			continue
		}

		polygon, err := f.Geometry.Polygon()
		if err != nil {
			errs = append(errs, &FeatureError{Feature: i, ID: props.ID, Err: err})
			continue
		}
		seen[props.ID] = i

		name := strings.TrimSpace(props.Name)
		if name == "" {
			name = props.ID
		}
		entries = append(entries, Entry{
			Jurisdiction: domain.Jurisdiction{
				ID:       props.ID,
				TenantID: props.TenantID,
				Name:     name,
				Email:    props.Email,
			},
			Boundary: domain.JurisdictionBoundary{
				JurisdictionID: props.ID,
				Polygon:        polygon,
				Priority:       props.Priority,
			},
		})
	}

	metrics.BoundariesImported.WithLabelValues("invalid").Add(float64(len(errs)))
	return entries, errs, nil
}

// BoundaryWriter stores boundaries in bulk.
type BoundaryWriter interface {
	ReplaceBatch(ctx context.Context, boundaries []domain.JurisdictionBoundary) error
}

// StoreWriter adapts a BoundaryStore to BoundaryWriter one boundary at a time.
type StoreWriter struct {
	Store ports.BoundaryStore
}

func (w StoreWriter) ReplaceBatch(ctx context.Context, boundaries []domain.JurisdictionBoundary) error {
	for i := range boundaries {
		if err := w.Store.ReplaceBoundary(ctx, &boundaries[i]); err != nil {
			return err
		}
	}
	return nil
}

// Result summarises an import.
type Result struct {
	Jurisdictions int
	Boundaries    int
}

// Importer writes parsed entries to the jurisdiction repository and
// boundary store.
type Importer struct {
	jurisdictions ports.JurisdictionRepository
	boundaries    BoundaryWriter
	batchSize     int
}

// New creates an Importer. batchSize <= 0 defaults to 100.
func New(jurisdictions ports.JurisdictionRepository, boundaries BoundaryWriter, batchSize int) *Importer {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Importer{jurisdictions: jurisdictions, boundaries: boundaries, batchSize: batchSize}
}

// Import upserts every jurisdiction, then replaces boundaries in batches.
func (im *Importer) Import(ctx context.Context, entries []Entry) (Result, error) {
	var res Result

	for i := range entries {
		if err := im.jurisdictions.Upsert(ctx, &entries[i].Jurisdiction); err != nil {
			metrics.BoundariesImported.WithLabelValues("failed").Add(float64(len(entries) - res.Boundaries))
			return res, fmt.Errorf("upsert jurisdiction %s: %w", entries[i].Jurisdiction.ID, err)
		}
		res.Jurisdictions++
	}

	now := time.Now().UTC()
	for start := 0; start < len(entries); start += im.batchSize {
		end := start + im.batchSize
		if end > len(entries) {
			end = len(entries)
		}

		batch := make([]domain.JurisdictionBoundary, 0, end-start)
		for _, e := range entries[start:end] {
			b := e.Boundary
			b.UpdatedAt = now
			batch = append(batch, b)
		}
		if err := im.boundaries.ReplaceBatch(ctx, batch); err != nil {
			metrics.BoundariesImported.WithLabelValues("failed").Add(float64(len(entries) - res.Boundaries))
			return res, fmt.Errorf("replace boundaries %d-%d: %w", start, end-1, err)
		}
		res.Boundaries += len(batch)
		metrics.BoundariesImported.WithLabelValues("ok").Add(float64(len(batch)))
		slog.InfoContext(ctx, "boundary batch stored", "from", start, "to", end-1)
	}
	return res, nil
}

// Shadowed returns the ids of entries whose representative point resolves
// to a different jurisdiction once every entry is loaded into store. It
// flags boundaries hidden by a higher priority overlap.
func Shadowed(ctx context.Context, store ports.BoundaryStore, entries []Entry) ([]string, error) {
	if err := (StoreWriter{Store: store}).ReplaceBatch(ctx, boundariesOf(entries)); err != nil {
		return nil, err
	}

	locator := usecases.NewLocator(store, nil)
	var shadowed []string
	for _, e := range entries {
		id, found, err := locator.Locate(ctx, usecases.RepresentativePoint(e.Boundary.Polygon))
		if err != nil {
			return nil, err
		}
		if !found || id != e.Jurisdiction.ID {
			shadowed = append(shadowed, e.Jurisdiction.ID)
		}
	}
	return shadowed, nil
}

func boundariesOf(entries []Entry) []domain.JurisdictionBoundary {
	out := make([]domain.JurisdictionBoundary, len(entries))
	for i, e := range entries {
		out[i] = e.Boundary
	}
	return out
}

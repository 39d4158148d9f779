// Package memory holds in-process adapters used by the importer's dry run
// and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang/geo/r2"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

type entry struct {
	boundary domain.JurisdictionBoundary
	bounds   r2.Rect
}

// BoundaryStore implements ports.BoundaryStore in memory. Candidates are
// prefiltered by bounding rectangle, like the PostGIS && operator.
type BoundaryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewBoundaryStore creates an empty store.
func NewBoundaryStore() *BoundaryStore {
	return &BoundaryStore{entries: make(map[string]entry)}
}

func (s *BoundaryStore) FindBoundariesNear(_ context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error) {
	pt := r2.Point{X: p.X, Y: p.Y}

	s.mu.RLock()
	var out []domain.JurisdictionBoundary
	for _, e := range s.entries {
		if e.bounds.ContainsPoint(pt) {
			out = append(out, e.boundary)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].JurisdictionID < out[j].JurisdictionID
	})
	return out, nil
}

func (s *BoundaryStore) FindBoundaryByJurisdictionID(_ context.Context, jurisdictionID string) (*domain.JurisdictionBoundary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[jurisdictionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	b := e.boundary
	return &b, nil
}

func (s *BoundaryStore) ReplaceBoundary(_ context.Context, b *domain.JurisdictionBoundary) error {
	stored := *b
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[b.JurisdictionID] = entry{boundary: stored, bounds: b.Polygon.Bounds()}
	return nil
}

func (s *BoundaryStore) DeleteBoundary(_ context.Context, jurisdictionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[jurisdictionID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.entries, jurisdictionID)
	return nil
}

// Len returns the number of stored boundaries.
func (s *BoundaryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

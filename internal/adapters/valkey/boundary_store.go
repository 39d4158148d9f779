package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
	"github.com/samirrijal/civic311/internal/pkg/metrics"
)

// generationKey holds a counter bumped on every boundary write. Cached
// lookups embed it in their keys, so a bump invalidates all of them at once.
const generationKey = "boundaries:generation"

// Backend is the cache surface BoundaryStore needs. *Cache implements it.
type Backend interface {
	ports.CacheService
	Incr(ctx context.Context, key string) (int64, error)
}

// BoundaryStore is a read-through cache in front of another ports.BoundaryStore.
type BoundaryStore struct {
	next  ports.BoundaryStore
	cache Backend
	ttl   int
}

// NewBoundaryStore wraps next with a cache whose entries live for ttl.
func NewBoundaryStore(next ports.BoundaryStore, cache Backend, ttl time.Duration) *BoundaryStore {
	secs := int(ttl.Seconds())
	if secs <= 0 {
		secs = 300
	}
	return &BoundaryStore{next: next, cache: cache, ttl: secs}
}

func (s *BoundaryStore) FindBoundariesNear(ctx context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error) {
	key := fmt.Sprintf("boundaries:%s:near:%s:%s", s.generation(ctx),
		strconv.FormatFloat(p.X, 'g', -1, 64), strconv.FormatFloat(p.Y, 'g', -1, 64))

	if data, err := s.cache.Get(ctx, key); err == nil {
		var boundaries []domain.JurisdictionBoundary
		if err := json.Unmarshal(data, &boundaries); err == nil {
			metrics.CacheHits.WithLabelValues("boundaries_near").Inc()
			return boundaries, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("boundaries_near").Inc()

	boundaries, err := s.next.FindBoundariesNear(ctx, p)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, boundaries)
	return boundaries, nil
}

func (s *BoundaryStore) FindBoundaryByJurisdictionID(ctx context.Context, jurisdictionID string) (*domain.JurisdictionBoundary, error) {
	key := fmt.Sprintf("boundaries:%s:id:%s", s.generation(ctx), jurisdictionID)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var b domain.JurisdictionBoundary
		if err := json.Unmarshal(data, &b); err == nil {
			metrics.CacheHits.WithLabelValues("boundary_by_id").Inc()
			return &b, nil
		}
	}
	metrics.CacheMisses.WithLabelValues("boundary_by_id").Inc()

	b, err := s.next.FindBoundaryByJurisdictionID(ctx, jurisdictionID)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, b)
	return b, nil
}

func (s *BoundaryStore) ReplaceBoundary(ctx context.Context, b *domain.JurisdictionBoundary) error {
	if err := s.next.ReplaceBoundary(ctx, b); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *BoundaryStore) DeleteBoundary(ctx context.Context, jurisdictionID string) error {
	if err := s.next.DeleteBoundary(ctx, jurisdictionID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Invalidate drops every cached lookup for all processes sharing the cache.
// Bulk writers that bypass the store, such as the boundary importer, call it
// after writing.
func (s *BoundaryStore) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *BoundaryStore) generation(ctx context.Context) string {
	data, err := s.cache.Get(ctx, generationKey)
	if err != nil || len(data) == 0 {
		return "0"
	}
	return string(data)
}

func (s *BoundaryStore) invalidate(ctx context.Context) {
	if _, err := s.cache.Incr(ctx, generationKey); err != nil {
		slog.WarnContext(ctx, "boundary cache invalidation failed, entries expire by ttl", "error", err)
	}
}

func (s *BoundaryStore) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, key, data, s.ttl)
}

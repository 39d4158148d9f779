package valkey_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/civic311/internal/adapters/memory"
	"github.com/samirrijal/civic311/internal/adapters/valkey"
	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

type fakeBackend struct {
	mu      sync.Mutex
	data    map[string][]byte
	incrErr error
}

func newFakeBackend() *fakeBackend { return &fakeBackend{data: map[string][]byte{}} }

func (f *fakeBackend) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return nil, valkey.ErrCacheMiss
}

func (f *fakeBackend) Set(_ context.Context, key string, value []byte, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeBackend) Incr(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	n, _ := strconv.ParseInt(string(f.data[key]), 10, 64)
	n++
	f.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

type countingStore struct {
	*memory.BoundaryStore
	near int
	byID int
}

func (c *countingStore) FindBoundariesNear(ctx context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error) {
	c.near++
	return c.BoundaryStore.FindBoundariesNear(ctx, p)
}

func (c *countingStore) FindBoundaryByJurisdictionID(ctx context.Context, id string) (*domain.JurisdictionBoundary, error) {
	c.byID++
	return c.BoundaryStore.FindBoundaryByJurisdictionID(ctx, id)
}

func square(t *testing.T, id string, offset float64) *domain.JurisdictionBoundary {
	t.Helper()
	pg, err := geospatial.BuildPolygon([][]float64{
		{offset, offset}, {offset, offset + 1}, {offset + 1, offset + 1}, {offset + 1, offset},
	})
	require.NoError(t, err)
	return &domain.JurisdictionBoundary{JurisdictionID: id, Polygon: pg}
}

func TestBoundaryStore_ReadThrough(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	inner := &countingStore{BoundaryStore: memory.NewBoundaryStore()}
	require.NoError(t, inner.ReplaceBoundary(ctx, square(t, "city", 0)))
	store := valkey.NewBoundaryStore(inner, newFakeBackend(), time.Minute)

	p, err := geospatial.ToInternal([]float64{0.5, 0.5})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := store.FindBoundariesNear(ctx, p)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "city", got[0].JurisdictionID)
		assert.True(t, got[0].Polygon.Contains(p), "cached polygon must survive serialization")
	}
	assert.Equal(t, 1, inner.near)

	for i := 0; i < 2; i++ {
		b, err := store.FindBoundaryByJurisdictionID(ctx, "city")
		require.NoError(t, err)
		assert.Len(t, b.Polygon.Coordinates(), 5)
	}
	assert.Equal(t, 1, inner.byID)
}

func TestBoundaryStore_WritesInvalidate(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	inner := &countingStore{BoundaryStore: memory.NewBoundaryStore()}
	store := valkey.NewBoundaryStore(inner, newFakeBackend(), time.Minute)
	p, err := geospatial.ToInternal([]float64{0.5, 0.5})
	require.NoError(t, err)

	got, err := store.FindBoundariesNear(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.ReplaceBoundary(ctx, square(t, "city", 0)))
	got, err = store.FindBoundariesNear(ctx, p)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, store.DeleteBoundary(ctx, "city"))
	got, err = store.FindBoundariesNear(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 3, inner.near)
}

func TestBoundaryStore_NotFoundIsNotCached(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	inner := &countingStore{BoundaryStore: memory.NewBoundaryStore()}
	store := valkey.NewBoundaryStore(inner, newFakeBackend(), time.Minute)

	for i := 0; i < 2; i++ {
		_, err := store.FindBoundaryByJurisdictionID(ctx, "nowhere")
		require.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, 2, inner.byID)
}

func TestBoundaryStore_InvalidationFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	backend := newFakeBackend()
	backend.incrErr = errors.New("valkey down")
	store := valkey.NewBoundaryStore(memory.NewBoundaryStore(), backend, time.Minute)

	require.NoError(t, store.ReplaceBoundary(ctx, square(t, "city", 0)))
}

func TestBoundaryStore_InvalidateAfterBypassingWrite(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	inner := &countingStore{BoundaryStore: memory.NewBoundaryStore()}
	backend := newFakeBackend()
	store := valkey.NewBoundaryStore(inner, backend, time.Minute)
	p, err := geospatial.ToInternal([]float64{0.5, 0.5})
	require.NoError(t, err)

	got, err := store.FindBoundariesNear(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, got)

	// A bulk import writes underneath the cache.
	require.NoError(t, inner.ReplaceBoundary(ctx, square(t, "city", 0)))
	got, err = store.FindBoundariesNear(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, got, "stale until invalidated")

	// Any instance sharing the backend can invalidate.
	valkey.NewBoundaryStore(inner, backend, time.Minute).Invalidate(ctx)
	got, err = store.FindBoundariesNear(ctx, p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "city", got[0].JurisdictionID)
}

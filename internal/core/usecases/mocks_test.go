package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// --- Mock BoundaryStore ---

type mockBoundaryStore struct {
	findNearFn  func(ctx context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error)
	findByIDFn  func(ctx context.Context, id string) (*domain.JurisdictionBoundary, error)
	replaceFn   func(ctx context.Context, b *domain.JurisdictionBoundary) error
	deleteFn    func(ctx context.Context, id string) error
	findNearHit int
}

func (m *mockBoundaryStore) FindBoundariesNear(ctx context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error) {
	m.findNearHit++
	if m.findNearFn != nil {
		return m.findNearFn(ctx, p)
	}
	return nil, nil
}

func (m *mockBoundaryStore) FindBoundaryByJurisdictionID(ctx context.Context, id string) (*domain.JurisdictionBoundary, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockBoundaryStore) ReplaceBoundary(ctx context.Context, b *domain.JurisdictionBoundary) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, b)
	}
	return nil
}

func (m *mockBoundaryStore) DeleteBoundary(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// --- Mock JurisdictionRepository ---

type mockJurisdictionRepo struct {
	listFn    func(ctx context.Context) ([]domain.Jurisdiction, error)
	getByIDFn func(ctx context.Context, id string) (*domain.Jurisdiction, error)
}

func (m *mockJurisdictionRepo) Upsert(ctx context.Context, j *domain.Jurisdiction) error { return nil }

func (m *mockJurisdictionRepo) List(ctx context.Context) ([]domain.Jurisdiction, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockJurisdictionRepo) GetByID(ctx context.Context, id string) (*domain.Jurisdiction, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Jurisdiction{ID: id}, nil
}

// --- Mock ServiceRequestRepository ---

type mockRequestRepo struct {
	createFn       func(ctx context.Context, r *domain.ServiceRequest) error
	getByIDFn      func(ctx context.Context, id string) (*domain.ServiceRequest, error)
	assignFn       func(ctx context.Context, id, jurisdictionID string) error
	listUnroutedFn func(ctx context.Context, afterID string, limit int) ([]domain.ServiceRequest, error)
	listFn         func(ctx context.Context, jurisdictionID string, limit int) ([]domain.ServiceRequest, error)
	findNearbyFn   func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ServiceRequest, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, r *domain.ServiceRequest) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	r.ID = "req-1"
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRequestRepo) AssignJurisdiction(ctx context.Context, id, jurisdictionID string) error {
	if m.assignFn != nil {
		return m.assignFn(ctx, id, jurisdictionID)
	}
	return nil
}

func (m *mockRequestRepo) ListUnrouted(ctx context.Context, afterID string, limit int) ([]domain.ServiceRequest, error) {
	if m.listUnroutedFn != nil {
		return m.listUnroutedFn(ctx, afterID, limit)
	}
	return nil, nil
}

func (m *mockRequestRepo) List(ctx context.Context, jurisdictionID string, limit int) ([]domain.ServiceRequest, error) {
	if m.listFn != nil {
		return m.listFn(ctx, jurisdictionID, limit)
	}
	return nil, nil
}

func (m *mockRequestRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ServiceRequest, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

// --- Mock ProjectRepository ---

type mockProjectRepo struct {
	createFn  func(ctx context.Context, p *domain.Project) error
	getByIDFn func(ctx context.Context, id string) (*domain.Project, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = "proj-1"
	return nil
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	routed   []domain.RequestRouted
	unrouted []domain.RequestUnrouted
	changed  []domain.BoundaryChanged
	err      error
}

func (m *mockPublisher) PublishRequestRouted(ctx context.Context, e *domain.RequestRouted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routed = append(m.routed, *e)
	return m.err
}

func (m *mockPublisher) PublishRequestUnrouted(ctx context.Context, e *domain.RequestUnrouted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unrouted = append(m.unrouted, *e)
	return m.err
}

func (m *mockPublisher) PublishBoundaryChanged(ctx context.Context, e *domain.BoundaryChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changed = append(m.changed, *e)
	return m.err
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- Mock MediaClassifier ---

type mockClassifier struct {
	isSafeFn func(ctx context.Context, url string) (bool, error)
}

func (m *mockClassifier) IsSafe(ctx context.Context, url string) (bool, error) {
	if m.isSafeFn != nil {
		return m.isSafeFn(ctx, url)
	}
	return true, nil
}

// --- Helpers ---

func boundary(id string, tuples [][]float64) domain.JurisdictionBoundary {
	pg, err := geospatial.BuildPolygon(tuples)
	if err != nil {
		panic(err)
	}
	return domain.JurisdictionBoundary{JurisdictionID: id, Polygon: pg}
}

func point(lat, lng float64) geospatial.Point {
	p, err := geospatial.ToInternal([]float64{lat, lng})
	if err != nil {
		panic(err)
	}
	return p
}

var unitSquare = [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}

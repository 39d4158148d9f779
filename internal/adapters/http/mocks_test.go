package http_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/civic311/internal/core/domain"
)

// ---- Fake repositories ----

type fakeJurisdictionRepo struct {
	mu    sync.Mutex
	items map[string]domain.Jurisdiction
	order []string
}

func newFakeJurisdictionRepo(js ...domain.Jurisdiction) *fakeJurisdictionRepo {
	r := &fakeJurisdictionRepo{items: make(map[string]domain.Jurisdiction)}
	for i := range js {
		_ = r.Upsert(context.Background(), &js[i])
	}
	return r
}

func (r *fakeJurisdictionRepo) Upsert(_ context.Context, j *domain.Jurisdiction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[j.ID]; !ok {
		r.order = append(r.order, j.ID)
	}
	r.items[j.ID] = *j
	return nil
}

func (r *fakeJurisdictionRepo) GetByID(_ context.Context, id string) (*domain.Jurisdiction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &j, nil
}

func (r *fakeJurisdictionRepo) List(_ context.Context) ([]domain.Jurisdiction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Jurisdiction, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out, nil
}

type fakeRequestRepo struct {
	mu    sync.Mutex
	items []domain.ServiceRequest
}

func (r *fakeRequestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = fmt.Sprintf("req-%d", len(r.items)+1)
	r.items = append(r.items, *req)
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.items {
		if req.ID == id {
			return &req, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRequestRepo) AssignJurisdiction(_ context.Context, id, jurisdictionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].JurisdictionID = &jurisdictionID
			r.items[i].Status = domain.StatusOpen
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeRequestRepo) ListUnrouted(_ context.Context, afterID string, limit int) ([]domain.ServiceRequest, error) {
	return nil, nil
}

func (r *fakeRequestRepo) List(_ context.Context, jurisdictionID string, limit int) ([]domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ServiceRequest
	for _, req := range r.items {
		if jurisdictionID != "" && (req.JurisdictionID == nil || *req.JurisdictionID != jurisdictionID) {
			continue
		}
		out = append(out, req)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) FindNearby(_ context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ServiceRequest(nil), r.items...), nil
}

type fakeProjectRepo struct {
	mu    sync.Mutex
	items map[string]domain.Project
}

func (r *fakeProjectRepo) Create(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[string]domain.Project)
	}
	p.ID = fmt.Sprintf("proj-%d", len(r.items)+1)
	r.items[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }

type fixedBreaker string

func (b fixedBreaker) State() string { return string(b) }

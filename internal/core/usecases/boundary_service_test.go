package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/usecases"
)

func TestBoundaryService_Set(t *testing.T) {
	var stored *domain.JurisdictionBoundary
	store := &mockBoundaryStore{
		replaceFn: func(ctx context.Context, b *domain.JurisdictionBoundary) error {
			stored = b
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewBoundaryService(&mockJurisdictionRepo{}, store, pub)

	b, err := svc.Set(context.Background(), "springfield", [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.JurisdictionID != "springfield" || stored.Priority != 5 {
		t.Fatalf("unexpected stored boundary %+v", stored)
	}
	if len(b.Polygon.Coordinates()) != 5 {
		t.Errorf("expected closed ring of 5, got %d", len(b.Polygon.Coordinates()))
	}
	if len(pub.changed) != 1 || pub.changed[0].JurisdictionID != "springfield" || pub.changed[0].Deleted {
		t.Errorf("expected one change event, got %+v", pub.changed)
	}
}

func TestBoundaryService_Set_Degenerate(t *testing.T) {
	store := &mockBoundaryStore{
		replaceFn: func(ctx context.Context, b *domain.JurisdictionBoundary) error {
			t.Fatal("degenerate polygon must not be stored")
			return nil
		},
	}
	svc := usecases.NewBoundaryService(&mockJurisdictionRepo{}, store, nil)

	_, err := svc.Set(context.Background(), "springfield", [][]float64{{0, 0}, {0, 0}, {0, 0}}, 0)
	if !errors.Is(err, domain.ErrDegeneratePolygon) {
		t.Fatalf("expected ErrDegeneratePolygon, got %v", err)
	}
}

func TestBoundaryService_Set_UnknownJurisdiction(t *testing.T) {
	repo := &mockJurisdictionRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Jurisdiction, error) {
			return nil, domain.ErrNotFound
		},
	}
	svc := usecases.NewBoundaryService(repo, &mockBoundaryStore{}, nil)

	_, err := svc.Set(context.Background(), "nowhere", unitSquare, 0)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBoundaryService_Set_PublishFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := usecases.NewBoundaryService(&mockJurisdictionRepo{}, &mockBoundaryStore{}, pub)

	if _, err := svc.Set(context.Background(), "springfield", unitSquare, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBoundaryService_Delete(t *testing.T) {
	deleted := ""
	store := &mockBoundaryStore{
		deleteFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecases.NewBoundaryService(&mockJurisdictionRepo{}, store, pub)

	if err := svc.Delete(context.Background(), "springfield"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "springfield" {
		t.Errorf("expected springfield deleted, got %q", deleted)
	}
	if len(pub.changed) != 1 || !pub.changed[0].Deleted {
		t.Errorf("expected a deletion event, got %+v", pub.changed)
	}
}

func TestBoundaryService_Delete_NotFound(t *testing.T) {
	store := &mockBoundaryStore{
		deleteFn: func(ctx context.Context, id string) error { return domain.ErrNotFound },
	}
	pub := &mockPublisher{}
	svc := usecases.NewBoundaryService(&mockJurisdictionRepo{}, store, pub)

	if err := svc.Delete(context.Background(), "nowhere"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(pub.changed) != 0 {
		t.Error("no event expected when nothing was deleted")
	}
}

func TestBoundaryService_Get(t *testing.T) {
	store := &mockBoundaryStore{
		findByIDFn: func(ctx context.Context, id string) (*domain.JurisdictionBoundary, error) {
			b := boundary(id, unitSquare)
			return &b, nil
		},
	}
	svc := usecases.NewBoundaryService(&mockJurisdictionRepo{}, store, nil)

	b, err := svc.Get(context.Background(), "springfield")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.JurisdictionID != "springfield" {
		t.Errorf("expected springfield, got %s", b.JurisdictionID)
	}
}

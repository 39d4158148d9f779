package ports

import (
	"context"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// JurisdictionRepository persists jurisdictions.
type JurisdictionRepository interface {
	Upsert(ctx context.Context, j *domain.Jurisdiction) error
	GetByID(ctx context.Context, id string) (*domain.Jurisdiction, error)
	List(ctx context.Context) ([]domain.Jurisdiction, error)
}

// BoundaryStore supplies candidate boundaries for resolution.
type BoundaryStore interface {
	// FindBoundariesNear returns boundaries whose bounding box covers p, ordered
	// by priority descending then jurisdiction id. Candidates may not contain p.
	FindBoundariesNear(ctx context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error)
	// FindBoundaryByJurisdictionID returns domain.ErrNotFound when no boundary is set.
	FindBoundaryByJurisdictionID(ctx context.Context, jurisdictionID string) (*domain.JurisdictionBoundary, error)
	// ReplaceBoundary deletes any existing boundary for the jurisdiction and
	// inserts b in one transaction.
	ReplaceBoundary(ctx context.Context, b *domain.JurisdictionBoundary) error
	DeleteBoundary(ctx context.Context, jurisdictionID string) error
}

// ServiceRequestRepository persists service requests.
type ServiceRequestRepository interface {
	Create(ctx context.Context, r *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	AssignJurisdiction(ctx context.Context, id, jurisdictionID string) error
	// ListUnrouted pages through requests without a jurisdiction in id order,
	// starting after afterID.
	ListUnrouted(ctx context.Context, afterID string, limit int) ([]domain.ServiceRequest, error)
	// List returns requests for export, optionally filtered by jurisdiction.
	List(ctx context.Context, jurisdictionID string, limit int) ([]domain.ServiceRequest, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.ServiceRequest, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
}

package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/ports"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
	"github.com/samirrijal/civic311/internal/pkg/telemetry"
)

// ProjectStatusPlanned is the status of newly created projects.
const ProjectStatusPlanned = "planned"

// CreateProject is the input of ProjectService.Create. Area is a ring of
// [lat, lng] tuples; JurisdictionID is optional.
type CreateProject struct {
	Name           string
	Description    string
	Area           [][]float64
	JurisdictionID string
}

// ProjectService handles public works projects.
type ProjectService struct {
	projects      ports.ProjectRepository
	jurisdictions ports.JurisdictionRepository
	locator       *Locator
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projects ports.ProjectRepository, jurisdictions ports.JurisdictionRepository, locator *Locator) *ProjectService {
	return &ProjectService{projects: projects, jurisdictions: jurisdictions, locator: locator}
}

// Create stores a project. Without an explicit jurisdiction the project is
// assigned to the jurisdiction containing its representative point: the area
// centroid when it falls inside the area, else the first vertex.
func (s *ProjectService) Create(ctx context.Context, in CreateProject) (*domain.Project, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCreateProject)
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}

	area, err := geospatial.BuildPolygon(in.Area)
	if err != nil {
		return nil, err
	}

	jurisdictionID := strings.TrimSpace(in.JurisdictionID)
	if jurisdictionID != "" {
		if _, err := s.jurisdictions.GetByID(ctx, jurisdictionID); err != nil {
			return nil, fmt.Errorf("jurisdiction %s: %w", jurisdictionID, err)
		}
	} else {
		id, found, err := s.locator.Locate(ctx, RepresentativePoint(area))
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: project area lies outside every jurisdiction", domain.ErrValidation)
		}
		jurisdictionID = id
	}

	p := &domain.Project{
		JurisdictionID: jurisdictionID,
		Name:           name,
		Description:    strings.TrimSpace(in.Description),
		Area:           area,
		Status:         ProjectStatusPlanned,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// GetByID returns a single project.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// RepresentativePoint returns the point of pg used for routing. It lies
// strictly inside pg, so a neighbour sharing a vertex or an edge never
// claims it.
func RepresentativePoint(pg geospatial.Polygon) geospatial.Point {
	return pg.InteriorPoint()
}

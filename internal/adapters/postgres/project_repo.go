package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// ProjectRepo implements ports.ProjectRepository.
type ProjectRepo struct {
	db *DB
}

func NewProjectRepo(db *DB) *ProjectRepo { return &ProjectRepo{db: db} }

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO projects (jurisdiction_id, name, description, area, status, created_at)
		VALUES ($1, $2, $3, ST_GeomFromText($4, 4326), $5, $6)
		RETURNING id
	`, p.JurisdictionID, p.Name, p.Description, p.Area.WKT(), p.Status, p.CreatedAt).Scan(&p.ID)
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var (
		p       domain.Project
		geojson string
	)
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, jurisdiction_id, name, COALESCE(description, ''), ST_AsGeoJSON(area, 15), status, created_at
		FROM projects WHERE id = $1
	`, id).Scan(&p.ID, &p.JurisdictionID, &p.Name, &p.Description, &geojson, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}

	area, err := geospatial.FromGeoJSON([]byte(geojson))
	if err != nil {
		return nil, fmt.Errorf("project %s area: %w", p.ID, err)
	}
	p.Area = area
	return &p, nil
}

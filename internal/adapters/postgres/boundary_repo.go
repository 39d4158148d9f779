package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

// BoundaryRepo implements ports.BoundaryStore on a PostGIS geometry column.
type BoundaryRepo struct {
	db *DB
}

// NewBoundaryRepo creates a new BoundaryRepo.
func NewBoundaryRepo(db *DB) *BoundaryRepo {
	return &BoundaryRepo{db: db}
}

// FindBoundariesNear returns boundaries whose bounding box overlaps p. The &&
// operator uses the GiST index; exact containment is left to the resolver.
func (r *BoundaryRepo) FindBoundariesNear(ctx context.Context, p geospatial.Point) ([]domain.JurisdictionBoundary, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT jurisdiction_id, ST_AsGeoJSON(boundary, 15), priority, updated_at
		FROM jurisdiction_boundaries
		WHERE boundary && ST_SetSRID(ST_MakePoint($1, $2), 4326)
		ORDER BY priority DESC, jurisdiction_id ASC
	`, p.X, p.Y)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boundaries []domain.JurisdictionBoundary
	for rows.Next() {
		b, err := scanBoundary(rows)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, *b)
	}
	return boundaries, rows.Err()
}

// FindBoundaryByJurisdictionID returns the boundary of one jurisdiction.
func (r *BoundaryRepo) FindBoundaryByJurisdictionID(ctx context.Context, jurisdictionID string) (*domain.JurisdictionBoundary, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT jurisdiction_id, ST_AsGeoJSON(boundary, 15), priority, updated_at
		FROM jurisdiction_boundaries
		WHERE jurisdiction_id = $1
	`, jurisdictionID)
	b, err := scanBoundary(row)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return b, nil
}

// ReplaceBoundary deletes the current boundary and inserts b in one transaction.
func (r *BoundaryRepo) ReplaceBoundary(ctx context.Context, b *domain.JurisdictionBoundary) error {
	if b.Polygon.IsEmpty() {
		return fmt.Errorf("%w: empty polygon", geospatial.ErrDegeneratePolygon)
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM jurisdiction_boundaries WHERE jurisdiction_id = $1`, b.JurisdictionID); err != nil {
		return fmt.Errorf("delete boundary: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO jurisdiction_boundaries (jurisdiction_id, boundary, priority, updated_at)
		VALUES ($1, ST_GeomFromText($2, 4326), $3, $4)
	`, b.JurisdictionID, b.Polygon.WKT(), b.Priority, b.UpdatedAt); err != nil {
		return fmt.Errorf("insert boundary: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteBoundary removes a jurisdiction's boundary.
func (r *BoundaryRepo) DeleteBoundary(ctx context.Context, jurisdictionID string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM jurisdiction_boundaries WHERE jurisdiction_id = $1`, jurisdictionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ReplaceBatch replaces many boundaries in one round trip. Used by the importer.
func (r *BoundaryRepo) ReplaceBatch(ctx context.Context, boundaries []domain.JurisdictionBoundary) error {
	if len(boundaries) == 0 {
		return nil
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, b := range boundaries {
		batch.Queue(`DELETE FROM jurisdiction_boundaries WHERE jurisdiction_id = $1`, b.JurisdictionID)
		batch.Queue(`
			INSERT INTO jurisdiction_boundaries (jurisdiction_id, boundary, priority, updated_at)
			VALUES ($1, ST_GeomFromText($2, 4326), $3, now())
		`, b.JurisdictionID, b.Polygon.WKT(), b.Priority)
	}
	br := tx.SendBatch(ctx, batch)
	for range boundaries {
		for i := 0; i < 2; i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}

func scanBoundary(row pgx.Row) (*domain.JurisdictionBoundary, error) {
	var (
		b       domain.JurisdictionBoundary
		geojson string
	)
	if err := row.Scan(&b.JurisdictionID, &geojson, &b.Priority, &b.UpdatedAt); err != nil {
		return nil, err
	}
	polygon, err := geospatial.FromGeoJSON([]byte(geojson))
	if err != nil {
		return nil, fmt.Errorf("boundary %s: %w", b.JurisdictionID, err)
	}
	b.Polygon = polygon
	return &b, nil
}

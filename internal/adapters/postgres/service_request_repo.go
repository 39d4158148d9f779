package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

const requestColumns = `id, jurisdiction_id, service_code, COALESCE(description, ''),
		       ST_Y(location::geometry) AS lat, ST_X(location::geometry) AS lon,
		       COALESCE(address, ''), COALESCE(media_url, ''), status, requested_at, updated_at`

// ServiceRequestRepo implements ports.ServiceRequestRepository.
type ServiceRequestRepo struct {
	db *DB
}

func NewServiceRequestRepo(db *DB) *ServiceRequestRepo {
	return &ServiceRequestRepo{db: db}
}

// Create inserts a request and sets its generated id.
func (r *ServiceRequestRepo) Create(ctx context.Context, req *domain.ServiceRequest) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO service_requests
		    (jurisdiction_id, service_code, description, location, address, media_url, status, requested_at, updated_at)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9, $10)
		RETURNING id
	`, req.JurisdictionID, req.ServiceCode, req.Description, req.Location.Long, req.Location.Lat,
		req.Address, req.MediaURL, req.Status, req.RequestedAt, req.UpdatedAt).Scan(&req.ID)
}

func (r *ServiceRequestRepo) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := scanRequest(r.db.Pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return req, nil
}

// AssignJurisdiction routes a still-unrouted request.
func (r *ServiceRequestRepo) AssignJurisdiction(ctx context.Context, id, jurisdictionID string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE service_requests
		SET jurisdiction_id = $2, status = $3, updated_at = now()
		WHERE id = $1 AND jurisdiction_id IS NULL
	`, id, jurisdictionID, domain.StatusOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ServiceRequestRepo) ListUnrouted(ctx context.Context, afterID string, limit int) ([]domain.ServiceRequest, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE jurisdiction_id IS NULL AND id::text > $1
		ORDER BY id::text
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *ServiceRequestRepo) List(ctx context.Context, jurisdictionID string, limit int) ([]domain.ServiceRequest, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE $1 = '' OR jurisdiction_id = $1
		ORDER BY requested_at, id
		LIMIT $2
	`, jurisdictionID, limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

// FindNearby returns requests within radiusMeters using a bounding-box
// prefilter followed by ST_DWithin.
func (r *ServiceRequestRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.ServiceRequest, error) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(lat, lon, radiusMeters)
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM service_requests
		WHERE location && ST_MakeEnvelope($3, $4, $5, $6, 4326)::geography
		  AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $7)
		ORDER BY location <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		LIMIT $8
	`, lon, lat, minLon, minLat, maxLon, maxLat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	defer rows.Close()

	var reqs []domain.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func scanRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var (
		req domain.ServiceRequest
		jid sql.NullString
	)
	if err := row.Scan(
		&req.ID, &jid, &req.ServiceCode, &req.Description,
		&req.Location.Lat, &req.Location.Long,
		&req.Address, &req.MediaURL, &req.Status, &req.RequestedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if jid.Valid {
		req.JurisdictionID = &jid.String
	}
	return &req, nil
}

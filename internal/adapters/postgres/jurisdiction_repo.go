package postgres

import (
	"context"
	"database/sql"

	"github.com/samirrijal/civic311/internal/core/domain"
)

// JurisdictionRepo implements ports.JurisdictionRepository.
type JurisdictionRepo struct {
	db *DB
}

func NewJurisdictionRepo(db *DB) *JurisdictionRepo {
	return &JurisdictionRepo{db: db}
}

func (r *JurisdictionRepo) Upsert(ctx context.Context, j *domain.Jurisdiction) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO jurisdictions (id, tenant_id, name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, tenant_id = EXCLUDED.tenant_id
	`, j.ID, nilIfEmpty(j.TenantID), j.Name, nilIfEmpty(j.Email))
	return err
}

func (r *JurisdictionRepo) GetByID(ctx context.Context, id string) (*domain.Jurisdiction, error) {
	j := &domain.Jurisdiction{}
	var tenant, email sql.NullString
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, email, created_at
		FROM jurisdictions WHERE id = $1
	`, id).Scan(&j.ID, &tenant, &j.Name, &email, &j.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	j.TenantID = tenant.String
	j.Email = email.String
	return j, nil
}

func (r *JurisdictionRepo) List(ctx context.Context) ([]domain.Jurisdiction, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(tenant_id, ''), name, COALESCE(email, ''), created_at
		FROM jurisdictions ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jurisdictions []domain.Jurisdiction
	for rows.Next() {
		var j domain.Jurisdiction
		if err := rows.Scan(&j.ID, &j.TenantID, &j.Name, &j.Email, &j.CreatedAt); err != nil {
			return nil, err
		}
		jurisdictions = append(jurisdictions, j)
	}
	return jurisdictions, rows.Err()
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

package postgres_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/civic311/internal/adapters/postgres"
	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/pkg/geospatial"
)

func TestProjectRepo_Create(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := postgres.NewProjectRepo(postgres.NewWithPool(mock))
	area, err := geospatial.BuildPolygon([][]float64{{0, 0}, {0, 2}, {1, 2}})
	require.NoError(t, err)
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO projects")).
		WithArgs("springfield", "Resurfacing", "", "POLYGON((0 0, 2 0, 2 1, 0 0))", "planned", created).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("p-1"))

	p := &domain.Project{JurisdictionID: "springfield", Name: "Resurfacing", Area: area, Status: "planned", CreatedAt: created}
	require.NoError(t, repo.Create(t.Context(), p))
	assert.Equal(t, "p-1", p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepo_GetByID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewProjectRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1")).
			WithArgs("p-1").
			WillReturnRows(pgxmock.NewRows([]string{"id", "jurisdiction_id", "name", "description", "area", "status", "created_at"}).
				AddRow("p-1", "springfield", "Resurfacing", "", squareGeoJSON, "planned", time.Now()))

		p, err := repo.GetByID(ctx, "p-1")
		require.NoError(t, err)
		assert.Equal(t, "springfield", p.JurisdictionID)
		assert.Equal(t, [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}, p.Area.Coordinates())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewProjectRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("FROM projects WHERE id = $1")).
			WithArgs("p-404").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetByID(ctx, "p-404")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

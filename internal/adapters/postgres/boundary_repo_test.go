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

const squareGeoJSON = `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`

var boundaryColumns = []string{"jurisdiction_id", "st_asgeojson", "priority", "updated_at"}

func TestBoundaryRepo_FindBoundariesNear(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	updated := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	p, err := geospatial.ToInternal([]float64{0.5, 0.25})
	require.NoError(t, err)

	t.Run("success - ordered candidates", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("FROM jurisdiction_boundaries")+
			".*"+regexp.QuoteMeta("ORDER BY priority DESC, jurisdiction_id ASC")).
			WithArgs(0.25, 0.5).
			WillReturnRows(pgxmock.NewRows(boundaryColumns).
				AddRow("city", squareGeoJSON, 10, updated).
				AddRow("county", squareGeoJSON, 0, updated))

		got, err := repo.FindBoundariesNear(ctx, p)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "city", got[0].JurisdictionID)
		assert.Equal(t, 10, got[0].Priority)
		assert.Equal(t, updated, got[0].UpdatedAt)
		assert.Equal(t, [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}, got[0].Polygon.Coordinates())
		assert.True(t, got[1].Polygon.Contains(p))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - query", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("FROM jurisdiction_boundaries")).
			WithArgs(0.25, 0.5).
			WillReturnError(assert.AnError)

		got, err := repo.FindBoundariesNear(ctx, p)
		require.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - corrupt geometry", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("FROM jurisdiction_boundaries")).
			WithArgs(0.25, 0.5).
			WillReturnRows(pgxmock.NewRows(boundaryColumns).
				AddRow("broken", `{"type":"Polygon","coordinates":[[[0,0],[0,0],[0,0]]]}`, 0, updated))

		_, err = repo.FindBoundariesNear(ctx, p)
		require.ErrorIs(t, err, geospatial.ErrDegeneratePolygon)
		require.ErrorContains(t, err, "broken")
	})
}

func TestBoundaryRepo_FindBoundaryByJurisdictionID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("WHERE jurisdiction_id = $1")).
			WithArgs("nowhere").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.FindBoundaryByJurisdictionID(ctx, "nowhere")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("WHERE jurisdiction_id = $1")).
			WithArgs("city").
			WillReturnRows(pgxmock.NewRows(boundaryColumns).AddRow("city", squareGeoJSON, 3, time.Now()))

		b, err := repo.FindBoundaryByJurisdictionID(ctx, "city")
		require.NoError(t, err)
		assert.Equal(t, "city", b.JurisdictionID)
		assert.Equal(t, 3, b.Priority)
		assert.Len(t, b.Polygon.Coordinates(), 5)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBoundaryRepo_ReplaceBoundary(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	polygon, err := geospatial.BuildPolygon([][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}})
	require.NoError(t, err)
	updated := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	wkt := "POLYGON((0 0, 1 0, 1 1, 0 1, 0 0))"

	t.Run("success - delete then insert in one transaction", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jurisdiction_boundaries WHERE jurisdiction_id = $1")).
			WithArgs("city").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jurisdiction_boundaries")).
			WithArgs("city", wkt, 2, updated).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		err = repo.ReplaceBoundary(ctx, &domain.JurisdictionBoundary{
			JurisdictionID: "city", Polygon: polygon, Priority: 2, UpdatedAt: updated,
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - insert rolls back", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jurisdiction_boundaries")).
			WithArgs("city").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jurisdiction_boundaries")).
			WithArgs("city", wkt, 0, updated).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err = repo.ReplaceBoundary(ctx, &domain.JurisdictionBoundary{
			JurisdictionID: "city", Polygon: polygon, UpdatedAt: updated,
		})
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "insert boundary")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - empty polygon", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

		err = repo.ReplaceBoundary(ctx, &domain.JurisdictionBoundary{JurisdictionID: "city"})
		require.ErrorIs(t, err, geospatial.ErrDegeneratePolygon)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBoundaryRepo_DeleteBoundary(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "deleted", affected: 1},
		{name: "nothing to delete", affected: 0, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			repo := postgres.NewBoundaryRepo(postgres.NewWithPool(mock))

			mock.ExpectExec(regexp.QuoteMeta("DELETE FROM jurisdiction_boundaries WHERE jurisdiction_id = $1")).
				WithArgs("city").
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err = repo.DeleteBoundary(ctx, "city")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

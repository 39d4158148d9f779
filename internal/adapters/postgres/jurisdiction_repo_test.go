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
)

func TestJurisdictionRepo_GetByID(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewJurisdictionRepo(postgres.NewWithPool(mock))
		created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta("FROM jurisdictions WHERE id = $1")).
			WithArgs("springfield").
			WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "email", "created_at"}).
				AddRow("springfield", nil, "City of Springfield", "311@springfield.gov", created))

		j, err := repo.GetByID(ctx, "springfield")
		require.NoError(t, err)
		assert.Equal(t, "City of Springfield", j.Name)
		assert.Equal(t, "311@springfield.gov", j.Email)
		assert.Empty(t, j.TenantID)
		assert.Equal(t, created, j.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := postgres.NewJurisdictionRepo(postgres.NewWithPool(mock))

		mock.ExpectQuery(regexp.QuoteMeta("FROM jurisdictions WHERE id = $1")).
			WithArgs("nowhere").
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetByID(ctx, "nowhere")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestJurisdictionRepo_List(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := postgres.NewJurisdictionRepo(postgres.NewWithPool(mock))
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM jurisdictions ORDER BY name")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "email", "created_at"}).
			AddRow("shelby", "", "Shelby County", "", now).
			AddRow("springfield", "", "City of Springfield", "", now))

	list, err := repo.List(t.Context())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "shelby", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJurisdictionRepo_Upsert(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := postgres.NewJurisdictionRepo(postgres.NewWithPool(mock))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jurisdictions")).
		WithArgs("springfield", pgxmock.AnyArg(), "City of Springfield", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Upsert(t.Context(), &domain.Jurisdiction{ID: "springfield", Name: "City of Springfield"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

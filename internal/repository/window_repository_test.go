package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-crs-api/internal/models"
)

func newWindowRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func windowRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "semester_id", "name", "starts_at", "ends_at", "min_credits", "max_credits", "cohorts", "status",
		"check_prerequisites", "check_schedule_conflict", "check_credit_limit", "allow_waitlist", "created_at",
	})
}

func TestWindowRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newWindowRepoMock(t)
	defer cleanup()
	repo := NewWindowRepository(db)

	now := time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC)
	rows := windowRows().AddRow("w1", "sem-1", "Regular Registration", now.Add(-24*time.Hour), now.Add(24*time.Hour),
		12, 24, "{2023,2024}", models.WindowStatusOpen, true, true, true, true, now.Add(-48*time.Hour))
	mock.ExpectQuery("SELECT .+ FROM registration_windows").
		WithArgs("sem-1", models.WindowStatusOpen, now).
		WillReturnRows(rows)

	window, err := repo.FindActive(context.Background(), "sem-1", now)
	require.NoError(t, err)
	require.Equal(t, "w1", window.ID)
	require.Equal(t, 24, window.MaxCredits)
	require.True(t, window.AllowWaitlist)
	require.Equal(t, pq.Int64Array{2023, 2024}, window.Cohorts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowRepositoryFindActiveNone(t *testing.T) {
	db, mock, cleanup := newWindowRepoMock(t)
	defer cleanup()
	repo := NewWindowRepository(db)

	mock.ExpectQuery("SELECT .+ FROM registration_windows").
		WillReturnRows(windowRows())

	_, err := repo.FindActive(context.Background(), "sem-1", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newWindowRepoMock(t)
	defer cleanup()
	repo := NewWindowRepository(db)

	now := time.Now()
	rows := windowRows().AddRow("w1", "sem-1", "Regular Registration", now, now.Add(time.Hour),
		0, 24, "{}", models.WindowStatusOpen, true, true, true, true, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM registration_windows WHERE id = $1 LIMIT 1")).
		WithArgs("w1").
		WillReturnRows(rows)

	window, err := repo.FindByID(context.Background(), "w1")
	require.NoError(t, err)
	require.Equal(t, "sem-1", window.SemesterID)
	require.NoError(t, mock.ExpectationsWereMet())
}

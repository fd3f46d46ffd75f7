package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func prereqQuery() string {
	return regexp.QuoteMeta("SELECT prerequisite_id FROM course_prerequisites WHERE course_id = $1 ORDER BY position ASC")
}

func TestCourseRepositoryPrerequisites(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(prereqQuery()).
		WithArgs("cs201").
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).AddRow("cs101").AddRow("math101"))

	ids, err := repo.Prerequisites(context.Background(), "cs201")
	require.NoError(t, err)
	require.Equal(t, []string{"cs101", "math101"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryPrerequisiteEdgesWalksTransitively(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(prereqQuery()).WithArgs("cs301").
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).AddRow("cs201"))
	mock.ExpectQuery(prereqQuery()).WithArgs("cs201").
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).AddRow("cs101"))
	mock.ExpectQuery(prereqQuery()).WithArgs("cs101").
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}))

	edges, err := repo.PrerequisiteEdges(context.Background(), "cs301")
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"cs301": {"cs201"},
		"cs201": {"cs101"},
		"cs101": nil,
	}, edges)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryPrerequisiteEdgesTerminatesOnCycle(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery(prereqQuery()).WithArgs("a").
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).AddRow("b"))
	mock.ExpectQuery(prereqQuery()).WithArgs("b").
		WillReturnRows(sqlmock.NewRows([]string{"prerequisite_id"}).AddRow("a"))

	edges, err := repo.PrerequisiteEdges(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}, edges)
	require.NoError(t, mock.ExpectationsWereMet())
}

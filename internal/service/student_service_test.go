package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-crs-api/internal/models"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

type mockStudentRepo struct {
	byNIM     map[string]*models.Student
	byID      map[string]*models.Student
	byAccount map[string]*models.Student
	completed []models.CompletedCourse
}

func (m *mockStudentRepo) FindByNIM(ctx context.Context, nim string) (*models.Student, error) {
	if s, ok := m.byNIM[nim]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.byID[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) FindByAccountID(ctx context.Context, accountID string) (*models.Student, error) {
	if s, ok := m.byAccount[accountID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) CompletedCourses(ctx context.Context, studentID string, passingGrade float64) ([]models.CompletedCourse, error) {
	return m.completed, nil
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func TestStudentServiceResolveByNIM(t *testing.T) {
	repo := &mockStudentRepo{
		byNIM: map[string]*models.Student{"2023001": {ID: "s1", NIM: "2023001"}},
		byID:  map[string]*models.Student{"2023001": {ID: "wrong"}},
	}
	svc := NewStudentService(repo, 60, zap.NewNop())

	student, err := svc.Resolve(context.Background(), "2023001")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
}

func TestStudentServiceResolveFallsBackToID(t *testing.T) {
	repo := &mockStudentRepo{
		byID: map[string]*models.Student{"s1": {ID: "s1"}},
	}
	svc := NewStudentService(repo, 60, zap.NewNop())

	student, err := svc.Resolve(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
}

func TestStudentServiceResolveByAccountID(t *testing.T) {
	repo := &mockStudentRepo{
		byAccount: map[string]*models.Student{"acc-1": {ID: "s1"}},
	}
	svc := NewStudentService(repo, 60, zap.NewNop())

	student, err := svc.Resolve(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", student.ID)
}

func TestStudentServiceResolveNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, 60, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStudentServiceResolveEmptyIdentifier(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, 60, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStudentServiceCompletedSet(t *testing.T) {
	repo := &mockStudentRepo{completed: []models.CompletedCourse{
		{CourseID: "cs101", FinalGrade: 85},
		{CourseID: "math101", FinalGrade: 72},
	}}
	svc := NewStudentService(repo, 60, zap.NewNop())

	set, err := svc.CompletedSet(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, set["cs101"])
	assert.True(t, set["math101"])
	assert.False(t, set["cs201"])
}

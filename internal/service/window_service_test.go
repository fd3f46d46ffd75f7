package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-crs-api/internal/models"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

type mockWindowRepo struct {
	active *models.RegistrationWindow
	byID   map[string]*models.RegistrationWindow
}

func (m *mockWindowRepo) FindActive(ctx context.Context, semesterID string, now time.Time) (*models.RegistrationWindow, error) {
	if m.active == nil {
		return nil, sql.ErrNoRows
	}
	return m.active, nil
}

func (m *mockWindowRepo) FindByID(ctx context.Context, id string) (*models.RegistrationWindow, error) {
	if w, ok := m.byID[id]; ok {
		return w, nil
	}
	return nil, sql.ErrNoRows
}

func TestWindowServiceActive(t *testing.T) {
	repo := &mockWindowRepo{active: &models.RegistrationWindow{ID: "w1", SemesterID: "sem-1"}}
	svc := NewWindowService(repo, nil)

	window, err := svc.Active(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Equal(t, "w1", window.ID)
}

func TestWindowServiceActiveNoneOpen(t *testing.T) {
	svc := NewWindowService(&mockWindowRepo{}, nil)

	_, err := svc.Active(context.Background(), "sem-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrWindowClosed))
}

func TestWindowServiceGetNotFound(t *testing.T) {
	svc := NewWindowService(&mockWindowRepo{}, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestWindowServiceInjectedClock(t *testing.T) {
	at := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	svc := NewWindowService(&mockWindowRepo{}, func() time.Time { return at })

	assert.Equal(t, at, svc.Now())
}

func TestRegistrationWindowActiveAt(t *testing.T) {
	window := &models.RegistrationWindow{
		Status:   models.WindowStatusOpen,
		StartsAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, 2, 14, 23, 59, 59, 0, time.UTC),
	}

	assert.True(t, window.ActiveAt(time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)))
	assert.False(t, window.ActiveAt(time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)))
	assert.False(t, window.ActiveAt(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)))

	window.Status = models.WindowStatusClosed
	assert.False(t, window.ActiveAt(time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)))
}

func TestRegistrationWindowAllowsCohort(t *testing.T) {
	window := &models.RegistrationWindow{}
	assert.True(t, window.AllowsCohort(2023))

	window.Cohorts = []int64{2024, 2025}
	assert.True(t, window.AllowsCohort(2024))
	assert.False(t, window.AllowsCohort(2023))
}

package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/noah-isme/uni-crs-api/internal/models"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

type windowRepository interface {
	FindActive(ctx context.Context, semesterID string, now time.Time) (*models.RegistrationWindow, error)
	FindByID(ctx context.Context, id string) (*models.RegistrationWindow, error)
}

// WindowService answers "which registration window applies right now". The
// clock is injectable so transactions can be tested against a fixed instant.
type WindowService struct {
	repo windowRepository
	now  func() time.Time
}

// NewWindowService constructs WindowService.
func NewWindowService(repo windowRepository, now func() time.Time) *WindowService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &WindowService{repo: repo, now: now}
}

// Active returns the registration window currently accepting requests for
// the semester, or a WINDOW_CLOSED error when none is.
func (s *WindowService) Active(ctx context.Context, semesterID string) (*models.RegistrationWindow, error) {
	window, err := s.repo.FindActive(ctx, semesterID, s.now())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrWindowClosed, "no active registration window for semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration window")
	}
	return window, nil
}

// Get returns a window by id.
func (s *WindowService) Get(ctx context.Context, id string) (*models.RegistrationWindow, error) {
	window, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration window not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration window")
	}
	return window, nil
}

// Now exposes the service clock for callers sharing the same time source.
func (s *WindowService) Now() time.Time {
	return s.now()
}

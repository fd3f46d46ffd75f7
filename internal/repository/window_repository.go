package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-crs-api/internal/models"
)

const windowColumns = `id, semester_id, name, starts_at, ends_at, min_credits, max_credits, cohorts, status,
	check_prerequisites, check_schedule_conflict, check_credit_limit, allow_waitlist, created_at`

// WindowRepository handles persistence of registration windows.
type WindowRepository struct {
	db *sqlx.DB
}

// NewWindowRepository constructs the repository.
func NewWindowRepository(db *sqlx.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

// FindByID returns a registration window by its ID.
func (r *WindowRepository) FindByID(ctx context.Context, id string) (*models.RegistrationWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM registration_windows WHERE id = $1 LIMIT 1`
	var window models.RegistrationWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// FindActive returns the window that is open and within its time bounds for
// the semester at the given instant. At most one window is active at a time.
func (r *WindowRepository) FindActive(ctx context.Context, semesterID string, now time.Time) (*models.RegistrationWindow, error) {
	query := `SELECT ` + windowColumns + ` FROM registration_windows
	WHERE semester_id = $1 AND status = $2 AND starts_at <= $3 AND ends_at >= $3
	ORDER BY starts_at DESC LIMIT 1`
	var window models.RegistrationWindow
	if err := r.db.GetContext(ctx, &window, query, semesterID, models.WindowStatusOpen, now); err != nil {
		return nil, err
	}
	return &window, nil
}

package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-crs-api/internal/models"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

type studentRepository interface {
	FindByNIM(ctx context.Context, nim string) (*models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Student, error)
	CompletedCourses(ctx context.Context, studentID string, passingGrade float64) ([]models.CompletedCourse, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

// StudentService resolves students and exposes the completed-course reads the
// engine depends on.
type StudentService struct {
	repo         studentRepository
	passingGrade float64
	logger       *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, passingGrade float64, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, passingGrade: passingGrade, logger: logger}
}

// Resolve looks up a student by any accepted identifier form. The lookup
// strategy is fixed: external student number (NIM) first, then internal id,
// then linked account id. Each form is keyed on a distinct unique column so
// the first hit is unambiguous.
func (s *StudentService) Resolve(ctx context.Context, identifier string) (*models.Student, error) {
	if identifier == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student identifier required")
	}

	lookups := []func(context.Context, string) (*models.Student, error){
		s.repo.FindByNIM,
		s.repo.FindByID,
		s.repo.FindByAccountID,
	}
	for _, lookup := range lookups {
		student, err := lookup(ctx, identifier)
		if err == nil {
			return student, nil
		}
		if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

// CompletedSet returns the set of course ids the student has passed.
func (s *StudentService) CompletedSet(ctx context.Context, studentID string) (map[string]bool, error) {
	completed, err := s.repo.CompletedCourses(ctx, studentID, s.passingGrade)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed courses")
	}
	set := make(map[string]bool, len(completed))
	for _, c := range completed {
		set[c.CourseID] = true
	}
	return set, nil
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

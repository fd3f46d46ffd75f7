package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-crs-api/internal/models"
)

// CourseRepository handles catalog reads the engine depends on.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, credits, program_id, created_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Prerequisites returns the direct prerequisite course ids of a course, in
// catalog order.
func (r *CourseRepository) Prerequisites(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT prerequisite_id FROM course_prerequisites WHERE course_id = $1 ORDER BY position ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return ids, nil
}

// PrerequisiteEdges returns every edge of the prerequisite graph rooted at
// the given course, walking transitively. The prerequisite validator runs its
// traversal over this in-memory snapshot so one enroll request issues a
// bounded number of queries.
func (r *CourseRepository) PrerequisiteEdges(ctx context.Context, courseID string) (map[string][]string, error) {
	edges := make(map[string][]string)
	pending := []string{courseID}
	seen := map[string]bool{courseID: true}

	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]

		prereqs, err := r.Prerequisites(ctx, id)
		if err != nil {
			return nil, err
		}
		edges[id] = prereqs
		for _, p := range prereqs {
			if !seen[p] {
				seen[p] = true
				pending = append(pending, p)
			}
		}
	}
	return edges, nil
}

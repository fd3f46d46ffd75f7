package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-crs-api/internal/models"
)

// SectionRepository handles non-transactional section reads. All seat-count
// mutations go through the RegistrationRepository transaction instead.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a section by its ID.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	const query = `SELECT id, course_id, semester_id, code, capacity, enrolled, status, created_at, updated_at FROM sections WHERE id = $1 LIMIT 1`
	var section models.Section
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section joined with its course.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT sec.id, sec.course_id, sec.semester_id, sec.code, sec.capacity, sec.enrolled, sec.status, sec.created_at, sec.updated_at,
        c.code AS course_code, c.title AS course_title, c.credits AS course_credits
        FROM sections sec
        LEFT JOIN courses c ON c.id = sec.course_id
        WHERE sec.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Slots returns the meeting slots of a section.
func (r *SectionRepository) Slots(ctx context.Context, sectionID string) ([]models.MeetingSlot, error) {
	const query = `SELECT id, section_id, day_of_week, period, room FROM meeting_slots WHERE section_id = $1 ORDER BY day_of_week, period`
	var slots []models.MeetingSlot
	if err := r.db.SelectContext(ctx, &slots, query, sectionID); err != nil {
		return nil, fmt.Errorf("list meeting slots: %w", err)
	}
	return slots, nil
}

// List returns sections filtered by the provided criteria.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	base := `FROM sections sec
LEFT JOIN courses c ON c.id = sec.course_id`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("sec.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("sec.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("sec.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":        "sec.code",
		"course_code": "c.code",
		"created_at":  "sec.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "sec.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT sec.id, sec.course_id, sec.semester_id, sec.code, sec.capacity, sec.enrolled, sec.status, sec.created_at, sec.updated_at,
        c.code AS course_code, c.title AS course_title, c.credits AS course_credits
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}
	return sections, total, nil
}

// Roster returns the registered enrollments of a section with student info.
func (r *SectionRepository) Roster(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.window_id, e.status, e.waitlist_position, e.enrolled_at, e.cancelled_at, e.forced, e.force_reason, e.forced_by,
        s.full_name AS student_name, s.nim AS student_nim, sec.code AS section_code, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        LEFT JOIN courses c ON c.id = sec.course_id
        WHERE e.section_id = $1 AND e.status = $2
        ORDER BY s.nim ASC`
	var roster []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &roster, query, sectionID, models.EnrollmentStatusRegistered); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return roster, nil
}

// Waitlist returns the waitlisted enrollments of a section ordered by
// position.
func (r *SectionRepository) Waitlist(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.window_id, e.status, e.waitlist_position, e.enrolled_at, e.cancelled_at, e.forced, e.force_reason, e.forced_by,
        s.full_name AS student_name, s.nim AS student_nim, sec.code AS section_code, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        LEFT JOIN courses c ON c.id = sec.course_id
        WHERE e.section_id = $1 AND e.status = $2
        ORDER BY e.waitlist_position ASC`
	var waitlist []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &waitlist, query, sectionID, models.EnrollmentStatusWaitlist); err != nil {
		return nil, fmt.Errorf("list section waitlist: %w", err)
	}
	return waitlist, nil
}

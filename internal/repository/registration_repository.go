package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-crs-api/internal/models"
)

const enrollmentColumns = `id, student_id, section_id, window_id, status, waitlist_position, enrolled_at, cancelled_at, forced, force_reason, forced_by`

// RegistrationTx exposes the operations available inside one registration
// transaction. Every durable read and write an enroll/cancel decision depends
// on flows through this interface so the whole decision commits or aborts as
// a unit.
type RegistrationTx interface {
	// SectionForUpdate loads the section row under a row lock, serialising
	// all multi-step seat mutations on that section.
	SectionForUpdate(ctx context.Context, sectionID string) (*models.Section, error)
	// ClaimSeat performs the conditional atomic increment: it succeeds only
	// if a seat was still free at increment time.
	ClaimSeat(ctx context.Context, sectionID string) (bool, error)
	// IncrementSeat increments the enrolled counter unconditionally. Used by
	// waitlist promotion and admin force-adds.
	IncrementSeat(ctx context.Context, sectionID string) error
	// ReleaseSeat decrements the enrolled counter.
	ReleaseSeat(ctx context.Context, sectionID string) error

	ActiveEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	PriorEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	EnrollmentForUpdate(ctx context.Context, id string) (*models.Enrollment, error)
	InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	ReviveEnrollment(ctx context.Context, enrollment *models.Enrollment) error
	MarkCancelled(ctx context.Context, id string, status models.EnrollmentStatus, at time.Time) error

	WaitlistCount(ctx context.Context, sectionID string) (int, error)
	HeadOfWaitlist(ctx context.Context, sectionID string) (*models.Enrollment, error)
	Promote(ctx context.Context, id string) error
	CompactWaitlist(ctx context.Context, sectionID string, abovePosition int) error

	RegisteredSlots(ctx context.Context, studentID, semesterID string) ([]models.MeetingSlot, error)
	RegisteredCredits(ctx context.Context, studentID, windowID string) (int, error)
}

// RegistrationRepository owns the enrollment transaction boundary plus
// non-transactional enrollment reads.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// InTx runs fn inside a database transaction. The transaction is rolled back
// on any error so no partial registration state is ever observable.
func (r *RegistrationRepository) InTx(ctx context.Context, fn func(tx RegistrationTx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration tx: %w", err)
	}
	if err := fn(&registrationTx{tx: tx}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration tx: %w", err)
	}
	return nil
}

// FindByID returns an enrollment by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and section context.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.window_id, e.status, e.waitlist_position, e.enrolled_at, e.cancelled_at, e.forced, e.force_reason, e.forced_by,
        s.full_name AS student_name, s.nim AS student_nim, sec.code AS section_code, c.code AS course_code, c.title AS course_title
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        LEFT JOIN courses c ON c.id = sec.course_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns enrollments filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN sections sec ON sec.id = e.section_id
LEFT JOIN courses c ON c.id = sec.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.WindowID != "" {
		conditions = append(conditions, fmt.Sprintf("e.window_id = $%d", len(args)+1))
		args = append(args, filter.WindowID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "s.full_name",
		"section_code": "sec.code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.section_id, e.window_id, e.status, e.waitlist_position, e.enrolled_at, e.cancelled_at, e.forced, e.force_reason, e.forced_by,
        s.full_name AS student_name, s.nim AS student_nim, sec.code AS section_code, c.code AS course_code, c.title AS course_title
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// registrationTx implements RegistrationTx against an open sqlx transaction.
type registrationTx struct {
	tx *sqlx.Tx
}

func (t *registrationTx) SectionForUpdate(ctx context.Context, sectionID string) (*models.Section, error) {
	const query = `SELECT id, course_id, semester_id, code, capacity, enrolled, status, created_at, updated_at FROM sections WHERE id = $1 FOR UPDATE`
	var section models.Section
	if err := t.tx.GetContext(ctx, &section, query, sectionID); err != nil {
		return nil, err
	}
	return &section, nil
}

func (t *registrationTx) ClaimSeat(ctx context.Context, sectionID string) (bool, error) {
	const query = `UPDATE sections SET enrolled = enrolled + 1, updated_at = $2 WHERE id = $1 AND enrolled < capacity`
	res, err := t.tx.ExecContext(ctx, query, sectionID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("claim seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim seat result: %w", err)
	}
	return affected == 1, nil
}

func (t *registrationTx) IncrementSeat(ctx context.Context, sectionID string) error {
	const query = `UPDATE sections SET enrolled = enrolled + 1, updated_at = $2 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, sectionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment seat: %w", err)
	}
	return nil
}

func (t *registrationTx) ReleaseSeat(ctx context.Context, sectionID string) error {
	const query = `UPDATE sections SET enrolled = enrolled - 1, updated_at = $2 WHERE id = $1 AND enrolled > 0`
	if _, err := t.tx.ExecContext(ctx, query, sectionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("release seat: %w", err)
	}
	return nil
}

func (t *registrationTx) ActiveEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status IN ($3, $4) LIMIT 1`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, studentID, sectionID, models.EnrollmentStatusRegistered, models.EnrollmentStatusWaitlist); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *registrationTx) PriorEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status IN ($3, $4) ORDER BY enrolled_at DESC LIMIT 1`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, studentID, sectionID, models.EnrollmentStatusCancelled, models.EnrollmentStatusDropped); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *registrationTx) EnrollmentForUpdate(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *registrationTx) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, section_id, window_id, status, waitlist_position, enrolled_at, cancelled_at, forced, force_reason, forced_by)
        VALUES (:id, :student_id, :section_id, :window_id, :status, :waitlist_position, :enrolled_at, :cancelled_at, :forced, :force_reason, :forced_by)`
	if _, err := t.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (t *registrationTx) ReviveEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.CancelledAt = nil
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `UPDATE enrollments SET window_id = :window_id, status = :status, waitlist_position = :waitlist_position,
        enrolled_at = :enrolled_at, cancelled_at = NULL, forced = :forced, force_reason = :force_reason, forced_by = :forced_by
        WHERE id = :id`
	if _, err := t.tx.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("revive enrollment: %w", err)
	}
	return nil
}

func (t *registrationTx) MarkCancelled(ctx context.Context, id string, status models.EnrollmentStatus, at time.Time) error {
	const query = `UPDATE enrollments SET status = $2, waitlist_position = 0, cancelled_at = $3 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, status, at); err != nil {
		return fmt.Errorf("cancel enrollment: %w", err)
	}
	return nil
}

func (t *registrationTx) WaitlistCount(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`
	var count int
	if err := t.tx.GetContext(ctx, &count, query, sectionID, models.EnrollmentStatusWaitlist); err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return count, nil
}

func (t *registrationTx) HeadOfWaitlist(ctx context.Context, sectionID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE section_id = $1 AND status = $2 ORDER BY waitlist_position ASC LIMIT 1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := t.tx.GetContext(ctx, &enrollment, query, sectionID, models.EnrollmentStatusWaitlist); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (t *registrationTx) Promote(ctx context.Context, id string) error {
	const query = `UPDATE enrollments SET status = $2, waitlist_position = 0 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, models.EnrollmentStatusRegistered); err != nil {
		return fmt.Errorf("promote enrollment: %w", err)
	}
	return nil
}

func (t *registrationTx) CompactWaitlist(ctx context.Context, sectionID string, abovePosition int) error {
	const query = `UPDATE enrollments SET waitlist_position = waitlist_position - 1 WHERE section_id = $1 AND status = $2 AND waitlist_position > $3`
	if _, err := t.tx.ExecContext(ctx, query, sectionID, models.EnrollmentStatusWaitlist, abovePosition); err != nil {
		return fmt.Errorf("compact waitlist: %w", err)
	}
	return nil
}

func (t *registrationTx) RegisteredSlots(ctx context.Context, studentID, semesterID string) ([]models.MeetingSlot, error) {
	const query = `SELECT ms.id, ms.section_id, ms.day_of_week, ms.period, ms.room
        FROM meeting_slots ms
        JOIN sections sec ON sec.id = ms.section_id
        JOIN enrollments e ON e.section_id = sec.id
        WHERE e.student_id = $1 AND e.status = $2 AND sec.semester_id = $3`
	var slots []models.MeetingSlot
	if err := t.tx.SelectContext(ctx, &slots, query, studentID, models.EnrollmentStatusRegistered, semesterID); err != nil {
		return nil, fmt.Errorf("list registered slots: %w", err)
	}
	return slots, nil
}

func (t *registrationTx) RegisteredCredits(ctx context.Context, studentID, windowID string) (int, error) {
	const query = `SELECT COALESCE(SUM(c.credits), 0)
        FROM enrollments e
        JOIN sections sec ON sec.id = e.section_id
        JOIN courses c ON c.id = sec.course_id
        WHERE e.student_id = $1 AND e.window_id = $2 AND e.status = $3`
	var total int
	if err := t.tx.GetContext(ctx, &total, query, studentID, windowID, models.EnrollmentStatusRegistered); err != nil {
		return 0, fmt.Errorf("sum registered credits: %w", err)
	}
	return total, nil
}

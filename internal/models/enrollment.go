package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. REGISTERED and WAITLIST are the active
// statuses: a (student, section) pair may hold at most one of them at a time.
const (
	EnrollmentStatusRegistered EnrollmentStatus = "REGISTERED"
	EnrollmentStatusWaitlist   EnrollmentStatus = "WAITLIST"
	EnrollmentStatusCancelled  EnrollmentStatus = "CANCELLED"
	EnrollmentStatusDropped    EnrollmentStatus = "DROPPED"
)

// Active reports whether the status holds a seat or a waitlist slot.
func (s EnrollmentStatus) Active() bool {
	return s == EnrollmentStatusRegistered || s == EnrollmentStatusWaitlist
}

// Enrollment joins a student to a section within one registration window.
// WaitlistPosition is 1-based and meaningful only while status is WAITLIST;
// it is 0 otherwise. Waitlist positions per section always form a dense
// sequence 1..N.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	StudentID        string           `db:"student_id" json:"student_id"`
	SectionID        string           `db:"section_id" json:"section_id"`
	WindowID         string           `db:"window_id" json:"window_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	WaitlistPosition int              `db:"waitlist_position" json:"waitlist_position"`
	EnrolledAt       time.Time        `db:"enrolled_at" json:"enrolled_at"`
	CancelledAt      *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
	Forced           bool             `db:"forced" json:"forced"`
	ForceReason      *string          `db:"force_reason" json:"force_reason,omitempty"`
	ForcedBy         *string          `db:"forced_by" json:"forced_by,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student and section info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	StudentNIM  string `db:"student_nim" json:"student_nim"`
	SectionCode string `db:"section_code" json:"section_code"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	SectionID string
	WindowID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

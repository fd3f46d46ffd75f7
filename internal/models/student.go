package models

import "time"

// StudentStatus represents the academic standing of a student.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusActive    StudentStatus = "ACTIVE"
	StudentStatusInactive  StudentStatus = "INACTIVE"
	StudentStatusGraduated StudentStatus = "GRADUATED"
)

// Student represents a learner eligible for course registration.
type Student struct {
	ID        string        `db:"id" json:"id"`
	NIM       string        `db:"nim" json:"nim"`
	AccountID *string       `db:"account_id" json:"account_id,omitempty"`
	FullName  string        `db:"full_name" json:"full_name"`
	ProgramID string        `db:"program_id" json:"program_id"`
	Cohort    int           `db:"cohort" json:"cohort"`
	Status    StudentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// CompletedCourse is one course a student has passed with a final grade at or
// above the passing threshold, as reported by the academic-records store.
type CompletedCourse struct {
	CourseID   string  `db:"course_id" json:"course_id"`
	FinalGrade float64 `db:"final_grade" json:"final_grade"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ProgramID string
	Cohort    *int
	Status    StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

package models

import "time"

// SectionStatus represents the lifecycle of a scheduled section.
type SectionStatus string

// Possible section statuses. Only OPEN sections accept ordinary enrollment.
const (
	SectionStatusDraft     SectionStatus = "DRAFT"
	SectionStatusOpen      SectionStatus = "OPEN"
	SectionStatusClosed    SectionStatus = "CLOSED"
	SectionStatusCancelled SectionStatus = "CANCELLED"
)

// MeetingSlot is one weekly meeting of a section.
type MeetingSlot struct {
	ID        string `db:"id" json:"id"`
	SectionID string `db:"section_id" json:"section_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"`
	Period    int    `db:"period" json:"period"`
	Room      string `db:"room" json:"room"`
}

// Section is one scheduled offering of a course within a semester with a
// fixed seat capacity.
type Section struct {
	ID         string        `db:"id" json:"id"`
	CourseID   string        `db:"course_id" json:"course_id"`
	SemesterID string        `db:"semester_id" json:"semester_id"`
	Code       string        `db:"code" json:"code"`
	Capacity   int           `db:"capacity" json:"capacity"`
	Enrolled   int           `db:"enrolled" json:"enrolled"`
	Status     SectionStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`

	Slots []MeetingSlot `db:"-" json:"slots,omitempty"`
}

// SectionDetail enriches Section with course info for list responses.
type SectionDetail struct {
	Section
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
	CourseCredits int    `db:"course_credits" json:"course_credits"`
}

// SectionFilter provides filters for listing sections.
type SectionFilter struct {
	CourseID   string
	SemesterID string
	Status     SectionStatus
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

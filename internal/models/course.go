package models

import "time"

// Course represents a catalog course offered by a program.
type Course struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Title     string    `db:"title" json:"title"`
	Credits   int       `db:"credits" json:"credits"`
	ProgramID string    `db:"program_id" json:"program_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CoursePrerequisite is one directed edge of the prerequisite graph: taking
// CourseID requires having passed PrerequisiteID first.
type CoursePrerequisite struct {
	CourseID       string `db:"course_id" json:"course_id"`
	PrerequisiteID string `db:"prerequisite_id" json:"prerequisite_id"`
	Position       int    `db:"position" json:"position"`
}

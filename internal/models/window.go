package models

import (
	"time"

	"github.com/lib/pq"
)

// WindowStatus represents the administrative state of a registration window.
type WindowStatus string

// Possible window statuses.
const (
	WindowStatusOpen   WindowStatus = "OPEN"
	WindowStatusClosed WindowStatus = "CLOSED"
)

// WindowRules is the rule set a registration window applies to ordinary
// enrollment requests. Admin force operations bypass all of them.
type WindowRules struct {
	CheckPrerequisites    bool `db:"check_prerequisites" json:"check_prerequisites"`
	CheckScheduleConflict bool `db:"check_schedule_conflict" json:"check_schedule_conflict"`
	CheckCreditLimit      bool `db:"check_credit_limit" json:"check_credit_limit"`
	AllowWaitlist         bool `db:"allow_waitlist" json:"allow_waitlist"`
}

// RegistrationWindow is the time-bounded policy object governing which
// enroll/cancel rules apply within a semester.
type RegistrationWindow struct {
	ID         string        `db:"id" json:"id"`
	SemesterID string        `db:"semester_id" json:"semester_id"`
	Name       string        `db:"name" json:"name"`
	StartsAt   time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt     time.Time     `db:"ends_at" json:"ends_at"`
	MinCredits int           `db:"min_credits" json:"min_credits"`
	MaxCredits int           `db:"max_credits" json:"max_credits"`
	Cohorts    pq.Int64Array `db:"cohorts" json:"cohorts"`
	Status     WindowStatus  `db:"status" json:"status"`
	WindowRules
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActiveAt reports whether the window is open and within its time bounds.
func (w *RegistrationWindow) ActiveAt(now time.Time) bool {
	if w == nil || w.Status != WindowStatusOpen {
		return false
	}
	return !now.Before(w.StartsAt) && !now.After(w.EndsAt)
}

// AllowsCohort reports whether the window targets the given cohort. An empty
// cohort list means every cohort is eligible.
func (w *RegistrationWindow) AllowsCohort(cohort int) bool {
	if w == nil {
		return false
	}
	if len(w.Cohorts) == 0 {
		return true
	}
	for _, c := range w.Cohorts {
		if int(c) == cohort {
			return true
		}
	}
	return false
}

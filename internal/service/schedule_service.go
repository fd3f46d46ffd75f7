package service

import (
	"github.com/noah-isme/uni-crs-api/internal/models"
)

// ScheduleConflict describes one detected time-slot clash.
type ScheduleConflict struct {
	Candidate models.MeetingSlot `json:"candidate"`
	Existing  models.MeetingSlot `json:"existing"`
}

// ScheduleConflictChecker detects meeting-slot overlap between a student's
// registered sections and a candidate section.
type ScheduleConflictChecker struct{}

// NewScheduleConflictChecker constructs ScheduleConflictChecker.
func NewScheduleConflictChecker() *ScheduleConflictChecker {
	return &ScheduleConflictChecker{}
}

type slotKey struct {
	day    int
	period int
}

// FindConflict returns the first candidate slot that collides with an
// existing slot on (day, period), or nil when the candidate fits. Existing
// slots must come from the same transaction that decides the seat so a
// conflicting section cannot be granted between check and commit.
func (c *ScheduleConflictChecker) FindConflict(existing, candidate []models.MeetingSlot) *ScheduleConflict {
	occupied := make(map[slotKey]models.MeetingSlot, len(existing))
	for _, slot := range existing {
		occupied[slotKey{day: slot.DayOfWeek, period: slot.Period}] = slot
	}

	for _, slot := range candidate {
		if taken, ok := occupied[slotKey{day: slot.DayOfWeek, period: slot.Period}]; ok {
			return &ScheduleConflict{Candidate: slot, Existing: taken}
		}
	}
	return nil
}

package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-crs-api/internal/models"
	"github.com/noah-isme/uni-crs-api/internal/repository"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

type registrationStore interface {
	InTx(ctx context.Context, fn func(tx repository.RegistrationTx) error) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

type studentResolver interface {
	Resolve(ctx context.Context, identifier string) (*models.Student, error)
	CompletedSet(ctx context.Context, studentID string) (map[string]bool, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Slots(ctx context.Context, sectionID string) ([]models.MeetingSlot, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type windowProvider interface {
	Active(ctx context.Context, semesterID string) (*models.RegistrationWindow, error)
	Get(ctx context.Context, id string) (*models.RegistrationWindow, error)
	Now() time.Time
}

type prerequisiteChecker interface {
	Check(ctx context.Context, courseID string, completed map[string]bool) (*PrerequisiteResult, error)
}

type promotionNotifier interface {
	NotifyPromotion(enrollment models.Enrollment, fromPosition int)
}

type sectionCacheInvalidator interface {
	InvalidateSection(ctx context.Context, sectionID string)
}

// EnrollRequest describes one enroll attempt. StudentIdentifier accepts the
// external student number, internal id, or linked account id. Forced and
// ForcedBy are set by the admin handler, never bound from the request body.
type EnrollRequest struct {
	StudentIdentifier string `json:"student_identifier" validate:"required"`
	SectionID         string `json:"section_id" validate:"required"`
	ForceReason       string `json:"force_reason,omitempty"`
	Forced            bool   `json:"-"`
	ForcedBy          string `json:"-"`
}

// EnrollResult is the outcome of a committed enroll transaction.
type EnrollResult struct {
	EnrollmentID     string                  `json:"enrollment_id"`
	Status           models.EnrollmentStatus `json:"status"`
	WaitlistPosition int                     `json:"waitlist_position,omitempty"`
	// OverCapacity reports the post-hoc anomaly when an admin force-add
	// pushed the section past its capacity. Intentional over-enrollment is
	// permitted, so this is informational, never a failure.
	OverCapacity bool `json:"over_capacity,omitempty"`
}

// CancelRequest describes one cancel attempt. CallerStudentID is empty for
// privileged callers acting on someone else's enrollment.
type CancelRequest struct {
	EnrollmentID    string
	CallerStudentID string
	Privileged      bool
	// Drop marks the enrollment DROPPED instead of CANCELLED. Used by the
	// admin force-remove path.
	Drop bool
}

// RegistrationService orchestrates enroll and cancel transactions: it runs
// the validators, asks for a seat-or-waitlist decision, persists the
// enrollment, and guarantees the whole unit commits or aborts atomically.
type RegistrationService struct {
	store     registrationStore
	students  studentResolver
	sections  sectionReader
	courses   courseReader
	windows   windowProvider
	prereqs   prerequisiteChecker
	schedule  *ScheduleConflictChecker
	credits   *CreditLoadPolicy
	notifier  promotionNotifier
	cache     sectionCacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(
	store registrationStore,
	students studentResolver,
	sections sectionReader,
	courses courseReader,
	windows windowProvider,
	prereqs prerequisiteChecker,
	schedule *ScheduleConflictChecker,
	credits *CreditLoadPolicy,
	notifier promotionNotifier,
	cache sectionCacheInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == nil {
		schedule = NewScheduleConflictChecker()
	}
	if credits == nil {
		credits = NewCreditLoadPolicy(0, logger)
	}
	return &RegistrationService{
		store:     store,
		students:  students,
		sections:  sections,
		courses:   courses,
		windows:   windows,
		prereqs:   prereqs,
		schedule:  schedule,
		credits:   credits,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Enroll registers a student into a section or appends them to its waitlist.
func (s *RegistrationService) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	student, err := s.students.Resolve(ctx, req.StudentIdentifier)
	if err != nil {
		return nil, err
	}
	if !req.Forced && student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not active")
	}

	section, err := s.sections.FindByID(ctx, req.SectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	course, err := s.courses.FindByID(ctx, section.CourseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	window, err := s.resolveWindow(ctx, section.SemesterID, req.Forced)
	if err != nil {
		return nil, err
	}

	if !req.Forced {
		if !window.AllowsCohort(student.Cohort) {
			return nil, appErrors.WithDetails(appErrors.ErrCohortIneligible, map[string]interface{}{
				"cohort":          student.Cohort,
				"allowed_cohorts": window.Cohorts,
			})
		}
		if window.CheckPrerequisites {
			if err := s.checkPrerequisites(ctx, student.ID, course.ID); err != nil {
				return nil, err
			}
		}
	}

	candidateSlots, err := s.sections.Slots(ctx, req.SectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section slots")
	}

	result := &EnrollResult{}
	err = s.store.InTx(ctx, func(tx repository.RegistrationTx) error {
		sec, err := tx.SectionForUpdate(ctx, req.SectionID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "section not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
		}
		if err := s.checkSectionStatus(sec, req.Forced); err != nil {
			return err
		}

		if _, err := tx.ActiveEnrollment(ctx, student.ID, sec.ID); err == nil {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		} else if err != sql.ErrNoRows {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active enrollment")
		}

		if !req.Forced && window.CheckScheduleConflict {
			existing, err := tx.RegisteredSlots(ctx, student.ID, sec.SemesterID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registered slots")
			}
			if conflict := s.schedule.FindConflict(existing, candidateSlots); conflict != nil {
				return appErrors.WithDetails(appErrors.ErrScheduleConflict, map[string]interface{}{
					"day_of_week":         conflict.Candidate.DayOfWeek,
					"period":              conflict.Candidate.Period,
					"conflicting_section": conflict.Existing.SectionID,
				})
			}
		}

		if !req.Forced && window.CheckCreditLimit {
			current, err := tx.RegisteredCredits(ctx, student.ID, window.ID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum registered credits")
			}
			if err := s.credits.Check(window, student.ID, current, course.Credits); err != nil {
				return err
			}
		}

		status, position, overCapacity, err := s.decideSeat(ctx, tx, sec, window, req.Forced)
		if err != nil {
			return err
		}

		enrollment, err := s.persistEnrollment(ctx, tx, student, sec, window, req, status, position)
		if err != nil {
			return err
		}

		result.EnrollmentID = enrollment.ID
		result.Status = status
		result.WaitlistPosition = position
		result.OverCapacity = overCapacity
		return nil
	})
	if err != nil {
		s.recordOutcome("rejected")
		return nil, err
	}

	s.invalidateSection(ctx, req.SectionID)
	s.recordOutcome(string(result.Status))
	s.logger.Info("enrollment committed",
		zap.String("enrollment_id", result.EnrollmentID),
		zap.String("student_id", student.ID),
		zap.String("section_id", req.SectionID),
		zap.String("status", string(result.Status)),
		zap.Bool("forced", req.Forced))
	return result, nil
}

// Cancel terminates an active enrollment and promotes the head of the
// waitlist when a registered seat was vacated.
func (s *RegistrationService) Cancel(ctx context.Context, req CancelRequest) error {
	if req.EnrollmentID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "enrollment id required")
	}

	// Plain read to learn the section, so the transaction can take its locks
	// in the same order as the enroll path: section row first.
	current, err := s.store.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	var promoted *models.Enrollment
	var promotedFrom int

	err = s.store.InTx(ctx, func(tx repository.RegistrationTx) error {
		if _, err := tx.SectionForUpdate(ctx, current.SectionID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock section")
		}

		enrollment, err := tx.EnrollmentForUpdate(ctx, req.EnrollmentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock enrollment")
		}

		if !req.Privileged && enrollment.StudentID != req.CallerStudentID {
			return appErrors.Clone(appErrors.ErrForbidden, "not the owner of this enrollment")
		}
		if !enrollment.Status.Active() {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is not active")
		}
		if err := s.checkCancelDeadline(ctx, enrollment, req.Privileged); err != nil {
			return err
		}

		now := s.windows.Now()
		finalStatus := models.EnrollmentStatusCancelled
		if req.Drop {
			finalStatus = models.EnrollmentStatusDropped
		}

		switch enrollment.Status {
		case models.EnrollmentStatusRegistered:
			if err := tx.ReleaseSeat(ctx, enrollment.SectionID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
			}
			if err := tx.MarkCancelled(ctx, enrollment.ID, finalStatus, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
			}

			head, err := tx.HeadOfWaitlist(ctx, enrollment.SectionID)
			if err != nil {
				if err == sql.ErrNoRows {
					return nil
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read waitlist")
			}
			if err := tx.Promote(ctx, head.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote waitlist head")
			}
			if err := tx.IncrementSeat(ctx, enrollment.SectionID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim promoted seat")
			}
			if err := tx.CompactWaitlist(ctx, enrollment.SectionID, head.WaitlistPosition); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compact waitlist")
			}
			promoted = head
			promotedFrom = head.WaitlistPosition
			return nil

		case models.EnrollmentStatusWaitlist:
			if err := tx.MarkCancelled(ctx, enrollment.ID, finalStatus, now); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
			}
			if err := tx.CompactWaitlist(ctx, enrollment.SectionID, enrollment.WaitlistPosition); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compact waitlist")
			}
			return nil
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateSection(ctx, current.SectionID)
	if promoted != nil {
		if s.metrics != nil {
			s.metrics.RecordPromotion()
		}
		if s.notifier != nil {
			s.notifier.NotifyPromotion(*promoted, promotedFrom)
		}
	}
	s.logger.Info("enrollment cancelled",
		zap.String("enrollment_id", req.EnrollmentID),
		zap.String("section_id", current.SectionID),
		zap.Bool("promoted", promoted != nil))
	return nil
}

// ForceAdd enrolls a student bypassing eligibility, prerequisite, schedule,
// and capacity validation. Admin only.
func (s *RegistrationService) ForceAdd(ctx context.Context, req EnrollRequest) (*EnrollResult, error) {
	req.Forced = true
	return s.Enroll(ctx, req)
}

// ForceRemove cancels any active enrollment regardless of ownership or
// window deadline, marking it dropped. Admin only.
func (s *RegistrationService) ForceRemove(ctx context.Context, enrollmentID string) error {
	return s.Cancel(ctx, CancelRequest{EnrollmentID: enrollmentID, Privileged: true, Drop: true})
}

// Get returns an enrollment with context.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.store.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// List returns enrollments with pagination metadata.
func (s *RegistrationService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *RegistrationService) resolveWindow(ctx context.Context, semesterID string, forced bool) (*models.RegistrationWindow, error) {
	window, err := s.windows.Active(ctx, semesterID)
	if err != nil {
		// Force-adds may proceed outside any window; the enrollment is then
		// recorded without a window scope.
		if forced && appErrors.Is(err, appErrors.ErrWindowClosed) {
			return &models.RegistrationWindow{}, nil
		}
		return nil, err
	}
	return window, nil
}

func (s *RegistrationService) checkSectionStatus(section *models.Section, forced bool) error {
	switch section.Status {
	case models.SectionStatusOpen:
		return nil
	case models.SectionStatusClosed:
		if forced {
			return nil
		}
		return appErrors.Clone(appErrors.ErrConflict, "section is closed for registration")
	default:
		return appErrors.Clone(appErrors.ErrConflict, "section does not accept registrations")
	}
}

func (s *RegistrationService) checkPrerequisites(ctx context.Context, studentID, courseID string) error {
	completed, err := s.students.CompletedSet(ctx, studentID)
	if err != nil {
		return err
	}
	result, err := s.prereqs.Check(ctx, courseID, completed)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate prerequisites")
	}
	if len(result.Cycle) > 0 {
		return appErrors.WithDetails(appErrors.ErrPrereqCycle, map[string]interface{}{
			"cycle": result.Cycle,
		})
	}
	if !result.Valid {
		return appErrors.WithDetails(appErrors.ErrPrerequisitesUnmet, map[string]interface{}{
			"missing": result.Missing,
		})
	}
	return nil
}

func (s *RegistrationService) decideSeat(ctx context.Context, tx repository.RegistrationTx, section *models.Section, window *models.RegistrationWindow, forced bool) (models.EnrollmentStatus, int, bool, error) {
	if forced {
		if err := tx.IncrementSeat(ctx, section.ID); err != nil {
			return "", 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to force seat")
		}
		overCapacity := section.Enrolled+1 > section.Capacity
		if overCapacity {
			s.logger.Warn("section over-enrolled by force-add",
				zap.String("section_id", section.ID),
				zap.Int("enrolled", section.Enrolled+1),
				zap.Int("capacity", section.Capacity))
		}
		return models.EnrollmentStatusRegistered, 0, overCapacity, nil
	}

	won, err := tx.ClaimSeat(ctx, section.ID)
	if err != nil {
		return "", 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim seat")
	}
	if won {
		return models.EnrollmentStatusRegistered, 0, false, nil
	}

	if !window.AllowWaitlist {
		return "", 0, false, appErrors.WithDetails(appErrors.ErrSectionFull, map[string]interface{}{
			"capacity": section.Capacity,
		})
	}
	count, err := tx.WaitlistCount(ctx, section.ID)
	if err != nil {
		return "", 0, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count waitlist")
	}
	return models.EnrollmentStatusWaitlist, count + 1, false, nil
}

func (s *RegistrationService) persistEnrollment(ctx context.Context, tx repository.RegistrationTx, student *models.Student, section *models.Section, window *models.RegistrationWindow, req EnrollRequest, status models.EnrollmentStatus, position int) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{
		StudentID:        student.ID,
		SectionID:        section.ID,
		WindowID:         window.ID,
		Status:           status,
		WaitlistPosition: position,
		EnrolledAt:       s.windows.Now(),
		Forced:           req.Forced,
	}
	if req.Forced {
		if req.ForceReason != "" {
			reason := req.ForceReason
			enrollment.ForceReason = &reason
		}
		if req.ForcedBy != "" {
			by := req.ForcedBy
			enrollment.ForcedBy = &by
		}
	}

	// A cancelled or dropped record for the same pair is reactivated instead
	// of duplicated.
	prior, err := tx.PriorEnrollment(ctx, student.ID, section.ID)
	if err == nil {
		enrollment.ID = prior.ID
		if err := tx.ReviveEnrollment(ctx, enrollment); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reactivate enrollment")
		}
		return enrollment, nil
	}
	if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prior enrollment")
	}

	if err := tx.InsertEnrollment(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist enrollment")
	}
	return enrollment, nil
}

func (s *RegistrationService) checkCancelDeadline(ctx context.Context, enrollment *models.Enrollment, privileged bool) error {
	if privileged || enrollment.WindowID == "" {
		return nil
	}
	window, err := s.windows.Get(ctx, enrollment.WindowID)
	if err != nil {
		return err
	}
	if s.windows.Now().After(window.EndsAt) {
		return appErrors.Clone(appErrors.ErrForbidden, "cancellation deadline has passed")
	}
	return nil
}

func (s *RegistrationService) invalidateSection(ctx context.Context, sectionID string) {
	if s.cache != nil {
		s.cache.InvalidateSection(ctx, sectionID)
	}
}

func (s *RegistrationService) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordRegistration(outcome)
	}
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-crs-api/internal/models"
	"github.com/noah-isme/uni-crs-api/internal/repository"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

// fakeRegistrationStore keeps the whole registration state in memory and
// plays both the repository and the transaction handle. InTx snapshots the
// state and restores it when fn fails, matching the rollback contract.
type fakeRegistrationStore struct {
	section     *models.Section
	enrollments map[string]*models.Enrollment
	nextID      int

	registeredSlots   []models.MeetingSlot
	registeredCredits int
}

func newFakeStore(section *models.Section) *fakeRegistrationStore {
	return &fakeRegistrationStore{
		section:     section,
		enrollments: make(map[string]*models.Enrollment),
	}
}

func (f *fakeRegistrationStore) put(e models.Enrollment) {
	f.enrollments[e.ID] = &e
}

func (f *fakeRegistrationStore) InTx(ctx context.Context, fn func(tx repository.RegistrationTx) error) error {
	sectionBackup := *f.section
	backup := make(map[string]*models.Enrollment, len(f.enrollments))
	for id, e := range f.enrollments {
		copied := *e
		backup[id] = &copied
	}
	if err := fn(f); err != nil {
		*f.section = sectionBackup
		f.enrollments = backup
		return err
	}
	return nil
}

func (f *fakeRegistrationStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := f.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: *e}, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var list []models.EnrollmentDetail
	for _, e := range f.enrollments {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		list = append(list, models.EnrollmentDetail{Enrollment: *e})
	}
	return list, len(list), nil
}

func (f *fakeRegistrationStore) SectionForUpdate(ctx context.Context, sectionID string) (*models.Section, error) {
	if f.section == nil || f.section.ID != sectionID {
		return nil, sql.ErrNoRows
	}
	copied := *f.section
	return &copied, nil
}

func (f *fakeRegistrationStore) ClaimSeat(ctx context.Context, sectionID string) (bool, error) {
	if f.section.Enrolled < f.section.Capacity {
		f.section.Enrolled++
		return true, nil
	}
	return false, nil
}

func (f *fakeRegistrationStore) IncrementSeat(ctx context.Context, sectionID string) error {
	f.section.Enrolled++
	return nil
}

func (f *fakeRegistrationStore) ReleaseSeat(ctx context.Context, sectionID string) error {
	if f.section.Enrolled > 0 {
		f.section.Enrolled--
	}
	return nil
}

func (f *fakeRegistrationStore) ActiveEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID && e.Status.Active() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) PriorEnrollment(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.SectionID == sectionID && !e.Status.Active() {
			copied := *e
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) EnrollmentForUpdate(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := f.enrollments[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistrationStore) InsertEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		f.nextID++
		enrollment.ID = fmt.Sprintf("enr-%d", f.nextID)
	}
	f.put(*enrollment)
	return nil
}

func (f *fakeRegistrationStore) ReviveEnrollment(ctx context.Context, enrollment *models.Enrollment) error {
	f.put(*enrollment)
	return nil
}

func (f *fakeRegistrationStore) MarkCancelled(ctx context.Context, id string, status models.EnrollmentStatus, at time.Time) error {
	if e, ok := f.enrollments[id]; ok {
		e.Status = status
		e.WaitlistPosition = 0
		e.CancelledAt = &at
	}
	return nil
}

func (f *fakeRegistrationStore) WaitlistCount(ctx context.Context, sectionID string) (int, error) {
	count := 0
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusWaitlist {
			count++
		}
	}
	return count, nil
}

func (f *fakeRegistrationStore) HeadOfWaitlist(ctx context.Context, sectionID string) (*models.Enrollment, error) {
	var head *models.Enrollment
	for _, e := range f.enrollments {
		if e.SectionID != sectionID || e.Status != models.EnrollmentStatusWaitlist {
			continue
		}
		if head == nil || e.WaitlistPosition < head.WaitlistPosition {
			head = e
		}
	}
	if head == nil {
		return nil, sql.ErrNoRows
	}
	copied := *head
	return &copied, nil
}

func (f *fakeRegistrationStore) Promote(ctx context.Context, id string) error {
	if e, ok := f.enrollments[id]; ok {
		e.Status = models.EnrollmentStatusRegistered
		e.WaitlistPosition = 0
	}
	return nil
}

func (f *fakeRegistrationStore) CompactWaitlist(ctx context.Context, sectionID string, abovePosition int) error {
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusWaitlist && e.WaitlistPosition > abovePosition {
			e.WaitlistPosition--
		}
	}
	return nil
}

func (f *fakeRegistrationStore) RegisteredSlots(ctx context.Context, studentID, semesterID string) ([]models.MeetingSlot, error) {
	return f.registeredSlots, nil
}

func (f *fakeRegistrationStore) RegisteredCredits(ctx context.Context, studentID, windowID string) (int, error) {
	return f.registeredCredits, nil
}

// waitlistPositions returns the live waitlist positions of a section sorted
// ascending, for density assertions.
func (f *fakeRegistrationStore) waitlistPositions(sectionID string) []int {
	var positions []int
	for _, e := range f.enrollments {
		if e.SectionID == sectionID && e.Status == models.EnrollmentStatusWaitlist {
			positions = append(positions, e.WaitlistPosition)
		}
	}
	sort.Ints(positions)
	return positions
}

type fakeStudentResolver struct {
	students  map[string]*models.Student
	completed map[string]bool
}

func (f *fakeStudentResolver) Resolve(ctx context.Context, identifier string) (*models.Student, error) {
	if s, ok := f.students[identifier]; ok {
		return s, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeStudentResolver) CompletedSet(ctx context.Context, studentID string) (map[string]bool, error) {
	if f.completed == nil {
		return map[string]bool{}, nil
	}
	return f.completed, nil
}

type fakeSectionReader struct {
	section *models.Section
	slots   []models.MeetingSlot
}

func (f *fakeSectionReader) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if f.section == nil || f.section.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.section, nil
}

func (f *fakeSectionReader) Slots(ctx context.Context, sectionID string) ([]models.MeetingSlot, error) {
	return f.slots, nil
}

type fakeCourseReader struct {
	courses map[string]*models.Course
}

func (f *fakeCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := f.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeWindowProvider struct {
	window *models.RegistrationWindow
	err    error
	now    time.Time
}

func (f *fakeWindowProvider) Active(ctx context.Context, semesterID string) (*models.RegistrationWindow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.window, nil
}

func (f *fakeWindowProvider) Get(ctx context.Context, id string) (*models.RegistrationWindow, error) {
	if f.window != nil && f.window.ID == id {
		return f.window, nil
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "window not found")
}

func (f *fakeWindowProvider) Now() time.Time {
	if f.now.IsZero() {
		return time.Now().UTC()
	}
	return f.now
}

type fakePrereqChecker struct {
	result *PrerequisiteResult
	err    error
}

func (f *fakePrereqChecker) Check(ctx context.Context, courseID string, completed map[string]bool) (*PrerequisiteResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &PrerequisiteResult{Valid: true}, nil
}

type fakePromotionNotifier struct {
	events []PromotionEvent
}

func (f *fakePromotionNotifier) NotifyPromotion(enrollment models.Enrollment, fromPosition int) {
	f.events = append(f.events, PromotionEvent{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		SectionID:    enrollment.SectionID,
		FromPosition: fromPosition,
	})
}

type registrationFixture struct {
	store    *fakeRegistrationStore
	students *fakeStudentResolver
	sections *fakeSectionReader
	windows  *fakeWindowProvider
	notifier *fakePromotionNotifier
	svc      *RegistrationService
}

func newRegistrationFixture(section *models.Section) *registrationFixture {
	store := newFakeStore(section)
	students := &fakeStudentResolver{students: map[string]*models.Student{
		"s1": {ID: "s1", NIM: "2023001", Cohort: 2023, Status: models.StudentStatusActive},
		"s2": {ID: "s2", NIM: "2023002", Cohort: 2023, Status: models.StudentStatusActive},
		"s3": {ID: "s3", NIM: "2023003", Cohort: 2023, Status: models.StudentStatusActive},
	}}
	sections := &fakeSectionReader{section: section}
	courses := &fakeCourseReader{courses: map[string]*models.Course{
		"crs-1": {ID: "crs-1", Code: "CS101", Credits: 3},
	}}
	windows := &fakeWindowProvider{
		window: &models.RegistrationWindow{
			ID:         "w1",
			SemesterID: "sem-1",
			StartsAt:   time.Now().Add(-time.Hour),
			EndsAt:     time.Now().Add(time.Hour),
			MaxCredits: 24,
			Status:     models.WindowStatusOpen,
			WindowRules: models.WindowRules{
				CheckPrerequisites:    true,
				CheckScheduleConflict: true,
				CheckCreditLimit:      true,
				AllowWaitlist:         true,
			},
		},
	}
	notifier := &fakePromotionNotifier{}

	svc := NewRegistrationService(
		store, students, sections, courses, windows,
		&fakePrereqChecker{}, nil, nil, notifier, nil, nil, nil, nil,
	)
	return &registrationFixture{
		store:    store,
		students: students,
		sections: sections,
		windows:  windows,
		notifier: notifier,
		svc:      svc,
	}
}

func openSection(capacity, enrolled int) *models.Section {
	return &models.Section{
		ID:         "sec-1",
		CourseID:   "crs-1",
		SemesterID: "sem-1",
		Code:       "CS101-A",
		Capacity:   capacity,
		Enrolled:   enrolled,
		Status:     models.SectionStatusOpen,
	}
}

func TestRegistrationServiceEnrollClaimsSeat(t *testing.T) {
	fx := newRegistrationFixture(openSection(2, 0))

	result, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusRegistered, result.Status)
	assert.Zero(t, result.WaitlistPosition)
	assert.Equal(t, 1, fx.store.section.Enrolled)

	stored := fx.store.enrollments[result.EnrollmentID]
	require.NotNil(t, stored)
	assert.Equal(t, "s1", stored.StudentID)
	assert.Equal(t, "w1", stored.WindowID)
}

func TestRegistrationServiceEnrollWaitlistsWhenFull(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))

	first, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlist, first.Status)
	assert.Equal(t, 1, first.WaitlistPosition)

	second, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s2", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, second.WaitlistPosition)

	assert.Equal(t, 1, fx.store.section.Enrolled)
	assert.Equal(t, []int{1, 2}, fx.store.waitlistPositions("sec-1"))
}

func TestRegistrationServiceEnrollRejectsWhenFullWithoutWaitlist(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.windows.window.AllowWaitlist = false

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSectionFull))
	assert.Equal(t, 1, fx.store.section.Enrolled)
	assert.Empty(t, fx.store.enrollments)
}

func TestRegistrationServiceEnrollRejectsDuplicateActive(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 1))
	fx.store.put(models.Enrollment{ID: "e1", StudentID: "s1", SectionID: "sec-1", Status: models.EnrollmentStatusRegistered})

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyEnrolled))
	assert.Equal(t, 1, fx.store.section.Enrolled)
}

func TestRegistrationServiceEnrollWindowClosed(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	fx.windows.err = appErrors.Clone(appErrors.ErrWindowClosed, "")

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrWindowClosed))
}

func TestRegistrationServiceEnrollCohortIneligible(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	fx.windows.window.Cohorts = []int64{2024, 2025}

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCohortIneligible))
}

func TestRegistrationServiceEnrollPrerequisitesUnmet(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	svc := NewRegistrationService(
		fx.store, fx.students, fx.sections,
		&fakeCourseReader{courses: map[string]*models.Course{"crs-1": {ID: "crs-1", Credits: 3}}},
		fx.windows,
		&fakePrereqChecker{result: &PrerequisiteResult{Valid: false, Missing: []string{"crs-0"}}},
		nil, nil, nil, nil, nil, nil, nil,
	)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPrerequisitesUnmet))
	appErr := appErrors.FromError(err)
	assert.Equal(t, []string{"crs-0"}, appErr.Details["missing"])
}

func TestRegistrationServiceEnrollPrerequisiteCycle(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	svc := NewRegistrationService(
		fx.store, fx.students, fx.sections,
		&fakeCourseReader{courses: map[string]*models.Course{"crs-1": {ID: "crs-1", Credits: 3}}},
		fx.windows,
		&fakePrereqChecker{result: &PrerequisiteResult{Cycle: []string{"a", "b", "a"}}},
		nil, nil, nil, nil, nil, nil, nil,
	)

	_, err := svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPrereqCycle))
}

func TestRegistrationServiceEnrollScheduleConflict(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	fx.sections.slots = []models.MeetingSlot{{SectionID: "sec-1", DayOfWeek: 1, Period: 3}}
	fx.store.registeredSlots = []models.MeetingSlot{{SectionID: "sec-0", DayOfWeek: 1, Period: 3}}

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrScheduleConflict))
	appErr := appErrors.FromError(err)
	assert.Equal(t, "sec-0", appErr.Details["conflicting_section"])
}

func TestRegistrationServiceEnrollCreditLimitExceeded(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	fx.windows.window.MaxCredits = 21
	fx.store.registeredCredits = 20

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCreditLimitExceeded))
	appErr := appErrors.FromError(err)
	assert.Equal(t, 2, appErr.Details["over_by"])
}

func TestRegistrationServiceEnrollRejectsInactiveStudent(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	fx.students.students["s1"].Status = models.StudentStatusGraduated

	_, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

func TestRegistrationServiceEnrollRevivesPriorEnrollment(t *testing.T) {
	fx := newRegistrationFixture(openSection(5, 0))
	cancelledAt := time.Now().Add(-time.Hour)
	fx.store.put(models.Enrollment{ID: "e-old", StudentID: "s1", SectionID: "sec-1", Status: models.EnrollmentStatusCancelled, CancelledAt: &cancelledAt})

	result, err := fx.svc.Enroll(context.Background(), EnrollRequest{StudentIdentifier: "s1", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, "e-old", result.EnrollmentID)

	revived := fx.store.enrollments["e-old"]
	assert.Equal(t, models.EnrollmentStatusRegistered, revived.Status)
	assert.Nil(t, revived.CancelledAt)
}

func TestRegistrationServiceForceAddOverCapacity(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.store.section.Status = models.SectionStatusClosed
	fx.sections.section.Status = models.SectionStatusClosed

	result, err := fx.svc.ForceAdd(context.Background(), EnrollRequest{
		StudentIdentifier: "s1",
		SectionID:         "sec-1",
		ForceReason:       "dean approval",
		ForcedBy:          "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusRegistered, result.Status)
	assert.True(t, result.OverCapacity)
	assert.Equal(t, 2, fx.store.section.Enrolled)

	stored := fx.store.enrollments[result.EnrollmentID]
	require.NotNil(t, stored)
	assert.True(t, stored.Forced)
	require.NotNil(t, stored.ForceReason)
	assert.Equal(t, "dean approval", *stored.ForceReason)
}

func TestRegistrationServiceCancelPromotesWaitlistHead(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.store.put(models.Enrollment{ID: "e1", StudentID: "s1", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusRegistered})
	fx.store.put(models.Enrollment{ID: "e2", StudentID: "s2", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusWaitlist, WaitlistPosition: 1})
	fx.store.put(models.Enrollment{ID: "e3", StudentID: "s3", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusWaitlist, WaitlistPosition: 2})

	err := fx.svc.Cancel(context.Background(), CancelRequest{EnrollmentID: "e1", CallerStudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusCancelled, fx.store.enrollments["e1"].Status)
	assert.Equal(t, models.EnrollmentStatusRegistered, fx.store.enrollments["e2"].Status)
	assert.Equal(t, 1, fx.store.enrollments["e3"].WaitlistPosition)
	assert.Equal(t, 1, fx.store.section.Enrolled)

	require.Len(t, fx.notifier.events, 1)
	assert.Equal(t, "e2", fx.notifier.events[0].EnrollmentID)
	assert.Equal(t, 1, fx.notifier.events[0].FromPosition)
}

func TestRegistrationServiceCancelWaitlistedCompactsPositions(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.store.put(models.Enrollment{ID: "e2", StudentID: "s2", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusWaitlist, WaitlistPosition: 1})
	fx.store.put(models.Enrollment{ID: "e3", StudentID: "s3", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusWaitlist, WaitlistPosition: 2})

	err := fx.svc.Cancel(context.Background(), CancelRequest{EnrollmentID: "e2", CallerStudentID: "s2"})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusCancelled, fx.store.enrollments["e2"].Status)
	assert.Equal(t, []int{1}, fx.store.waitlistPositions("sec-1"))
	assert.Equal(t, 1, fx.store.section.Enrolled)
	assert.Empty(t, fx.notifier.events)
}

func TestRegistrationServiceCancelRejectsNonOwner(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.store.put(models.Enrollment{ID: "e1", StudentID: "s1", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusRegistered})

	err := fx.svc.Cancel(context.Background(), CancelRequest{EnrollmentID: "e1", CallerStudentID: "s2"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, models.EnrollmentStatusRegistered, fx.store.enrollments["e1"].Status)
}

func TestRegistrationServiceCancelAfterDeadline(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.store.put(models.Enrollment{ID: "e1", StudentID: "s1", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusRegistered})
	fx.windows.now = fx.windows.window.EndsAt.Add(time.Hour)

	err := fx.svc.Cancel(context.Background(), CancelRequest{EnrollmentID: "e1", CallerStudentID: "s1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestRegistrationServiceForceRemoveMarksDropped(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 1))
	fx.store.put(models.Enrollment{ID: "e1", StudentID: "s1", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusRegistered})
	fx.windows.now = fx.windows.window.EndsAt.Add(time.Hour)

	err := fx.svc.ForceRemove(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusDropped, fx.store.enrollments["e1"].Status)
	assert.Equal(t, 0, fx.store.section.Enrolled)
}

func TestRegistrationServiceCancelInactiveEnrollment(t *testing.T) {
	fx := newRegistrationFixture(openSection(1, 0))
	fx.store.put(models.Enrollment{ID: "e1", StudentID: "s1", SectionID: "sec-1", WindowID: "w1", Status: models.EnrollmentStatusCancelled})

	err := fx.svc.Cancel(context.Background(), CancelRequest{EnrollmentID: "e1", CallerStudentID: "s1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))
}

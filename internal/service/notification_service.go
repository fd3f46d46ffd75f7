package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-crs-api/internal/models"
	"github.com/noah-isme/uni-crs-api/pkg/config"
	"github.com/noah-isme/uni-crs-api/pkg/jobs"
)

// PromotionEvent describes one waitlist promotion that committed.
type PromotionEvent struct {
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	SectionID    string `json:"section_id"`
	FromPosition int    `json:"from_position"`
}

// NotificationService delivers waitlist-promotion notices asynchronously so
// the cancel transaction never blocks on delivery.
type NotificationService struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs NotificationService with its own queue.
func NewNotificationService(cfg config.WaitlistConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{logger: logger}
	svc.queue = jobs.NewQueue("waitlist-promotions", svc.handle, jobs.QueueConfig{
		Workers:    cfg.NotifyWorkers,
		BufferSize: cfg.NotifyBufferSize,
		MaxRetries: cfg.NotifyRetries,
		RetryDelay: cfg.NotifyRetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyPromotion enqueues a notification for a promoted enrollment. Delivery
// failures are retried by the queue; an enqueue failure is logged and dropped
// since the promotion itself already committed.
func (s *NotificationService) NotifyPromotion(enrollment models.Enrollment, fromPosition int) {
	event := PromotionEvent{
		EnrollmentID: enrollment.ID,
		StudentID:    enrollment.StudentID,
		SectionID:    enrollment.SectionID,
		FromPosition: fromPosition,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: event.EnrollmentID, Type: "waitlist_promotion", Payload: event}); err != nil {
		s.logger.Warn("failed to enqueue promotion notification",
			zap.String("enrollment_id", event.EnrollmentID),
			zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(PromotionEvent)
	if !ok {
		s.logger.Error("unexpected promotion payload", zap.String("job_id", job.ID))
		return nil
	}
	// Delivery target (mail, LMS push) hangs off here; the engine only
	// guarantees the notice is emitted once per promotion.
	s.logger.Info("waitlist promotion",
		zap.String("enrollment_id", event.EnrollmentID),
		zap.String("student_id", event.StudentID),
		zap.String("section_id", event.SectionID),
		zap.Int("from_position", event.FromPosition))
	return nil
}

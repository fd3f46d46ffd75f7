package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/uni-crs-api/internal/models"
	appErrors "github.com/noah-isme/uni-crs-api/pkg/errors"
)

// CreditLoadPolicy enforces the per-window credit ceiling. The window minimum
// is advisory only: the engine computes it and logs a warning but never fails
// an enrollment for being under-loaded. Hardening that into a rejection is a
// policy decision left to the registrar.
type CreditLoadPolicy struct {
	defaultMax int
	logger     *zap.Logger
}

// NewCreditLoadPolicy constructs CreditLoadPolicy. defaultMax applies when a
// window does not set its own ceiling; zero disables the fallback.
func NewCreditLoadPolicy(defaultMax int, logger *zap.Logger) *CreditLoadPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreditLoadPolicy{defaultMax: defaultMax, logger: logger}
}

// Check validates the credit load the student would carry after enrolling.
func (p *CreditLoadPolicy) Check(window *models.RegistrationWindow, studentID string, currentCredits, candidateCredits int) error {
	total := currentCredits + candidateCredits

	max := window.MaxCredits
	if max == 0 {
		max = p.defaultMax
	}
	if max > 0 && total > max {
		return appErrors.WithDetails(appErrors.ErrCreditLimitExceeded, map[string]interface{}{
			"current_credits":   currentCredits,
			"candidate_credits": candidateCredits,
			"total_credits":     total,
			"max_credits":       max,
			"over_by":           total - max,
		})
	}

	if window.MinCredits > 0 && total < window.MinCredits {
		p.logger.Warn("student below minimum credit load",
			zap.String("student_id", studentID),
			zap.String("window_id", window.ID),
			zap.Int("total_credits", total),
			zap.Int("min_credits", window.MinCredits))
	}

	return nil
}

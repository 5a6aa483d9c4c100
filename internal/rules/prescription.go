package rules

import (
	"time"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// CheckPrescription is the gate every prescription reference passes through:
// it must exist, belong to userID and be verified, and must not be expired at now.
func CheckPrescription(p *models.Prescription, userID int64, now time.Time) error {
	if p == nil || p.UserID != userID || !p.IsVerified {
		return InvalidPrescription()
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return ExpiredPrescription()
	}
	return nil
}

package models

import "time"

// Prescription is an uploaded prescription image reference awaiting or
// holding pharmacist verification.
type Prescription struct {
	ID         int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     int64      `gorm:"column:user_id;not null;index"`
	ImageKey   string     `gorm:"column:image_key;not null"`
	IsVerified bool       `gorm:"column:is_verified;not null;default:false"`
	VerifiedBy *int64     `gorm:"column:verified_by"`
	ExpiresAt  *time.Time `gorm:"column:expires_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// ValidAt reports whether the prescription satisfies a prescription-required
// line at the given instant.
func (p *Prescription) ValidAt(now time.Time) bool {
	if p == nil || !p.IsVerified {
		return false
	}
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// PrescriptionMedicine is a pharmacist-entered line naming a medicine the
// prescription covers.
type PrescriptionMedicine struct {
	ID             int64   `gorm:"column:id;primaryKey;autoIncrement"`
	PrescriptionID int64   `gorm:"column:prescription_id;not null;index"`
	MedicineID     int64   `gorm:"column:medicine_id;not null"`
	Dosage         *string `gorm:"column:dosage"`
	Quantity       int     `gorm:"column:quantity;not null"`
}

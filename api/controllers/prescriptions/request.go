package prescriptions

import (
	"time"

	prescription "github.com/quickmed/quickmed-backend/internal/prescriptions"
)

// createPrescriptionRequest references an image already put in the blob store.
type createPrescriptionRequest struct {
	ImageKey string `json:"image_key" validate:"required,max=512"`
}

type verifyRequest struct {
	IsVerified *bool      `json:"is_verified" validate:"required"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (p verifyRequest) toInput() prescription.VerifyInput {
	return prescription.VerifyInput{IsVerified: *p.IsVerified, ExpiresAt: p.ExpiresAt}
}

type addMedicineRequest struct {
	MedicineID int64   `json:"medicine_id" validate:"required,gt=0"`
	Dosage     *string `json:"dosage,omitempty" validate:"omitempty,max=255"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
}

func (p addMedicineRequest) toInput() prescription.MedicineLineInput {
	return prescription.MedicineLineInput{MedicineID: p.MedicineID, Dosage: p.Dosage, Quantity: p.Quantity}
}

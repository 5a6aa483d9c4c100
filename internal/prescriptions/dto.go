package prescription

import (
	"context"
	"time"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

type PrescriptionDTO struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	ImageURL   *string    `json:"image_url,omitempty"`
	IsVerified bool       `json:"is_verified"`
	VerifiedBy *int64     `json:"verified_by,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewPrescriptionDTO(ctx context.Context, p *models.Prescription, resolver storage.Resolver) PrescriptionDTO {
	key := p.ImageKey
	return PrescriptionDTO{
		ID:         p.ID,
		UserID:     p.UserID,
		ImageURL:   storage.ResolveOptional(ctx, resolver, &key),
		IsVerified: p.IsVerified,
		VerifiedBy: p.VerifiedBy,
		ExpiresAt:  p.ExpiresAt,
		CreatedAt:  p.CreatedAt,
	}
}

type PrescriptionMedicineDTO struct {
	ID             int64   `json:"id"`
	PrescriptionID int64   `json:"prescription_id"`
	MedicineID     int64   `json:"medicine_id"`
	Dosage         *string `json:"dosage"`
	Quantity       int     `json:"quantity"`
}

func NewPrescriptionMedicineDTO(line *models.PrescriptionMedicine) PrescriptionMedicineDTO {
	return PrescriptionMedicineDTO{
		ID:             line.ID,
		PrescriptionID: line.PrescriptionID,
		MedicineID:     line.MedicineID,
		Dosage:         line.Dosage,
		Quantity:       line.Quantity,
	}
}

package medicines

import (
	"github.com/shopspring/decimal"

	medicine "github.com/quickmed/quickmed-backend/internal/medicines"
)

type createMedicineRequest struct {
	Name                 string          `json:"name" validate:"required,max=200"`
	Description          *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price                decimal.Decimal `json:"price" validate:"money"`
	Stock                int             `json:"stock" validate:"gte=0"`
	CategoryID           int64           `json:"category_id" validate:"required,gt=0"`
	PrescriptionRequired bool            `json:"prescription_required"`
	Manufacturer         *string         `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	ImageKey             *string         `json:"image_key,omitempty" validate:"omitempty,max=512"`
}

func (p createMedicineRequest) toInput() medicine.CreateMedicineInput {
	return medicine.CreateMedicineInput{
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price,
		Stock:                p.Stock,
		CategoryID:           p.CategoryID,
		PrescriptionRequired: p.PrescriptionRequired,
		Manufacturer:         p.Manufacturer,
		ImageKey:             p.ImageKey,
	}
}

// updateMedicineRequest only applies fields present in the body.
type updateMedicineRequest struct {
	Name                 *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description          *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price                *decimal.Decimal `json:"price,omitempty" validate:"omitempty,money"`
	Stock                *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	CategoryID           *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	PrescriptionRequired *bool            `json:"prescription_required,omitempty"`
	Manufacturer         *string          `json:"manufacturer,omitempty" validate:"omitempty,max=200"`
	ImageKey             *string          `json:"image_key,omitempty" validate:"omitempty,max=512"`
}

func (p updateMedicineRequest) toPatch() medicine.MedicinePatch {
	return medicine.MedicinePatch{
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price,
		Stock:                p.Stock,
		CategoryID:           p.CategoryID,
		PrescriptionRequired: p.PrescriptionRequired,
		Manufacturer:         p.Manufacturer,
		ImageKey:             p.ImageKey,
	}
}

type stockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

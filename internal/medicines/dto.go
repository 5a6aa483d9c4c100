package medicine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

// CategoryDTO is the embedded category summary.
type CategoryDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// MedicineDTO is the public catalog representation.
type MedicineDTO struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	Description          *string         `json:"description,omitempty"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	CategoryID           int64           `json:"category_id"`
	Category             *CategoryDTO    `json:"category,omitempty"`
	PrescriptionRequired bool            `json:"prescription_required"`
	Manufacturer         *string         `json:"manufacturer,omitempty"`
	ImageURL             *string         `json:"image_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// NewMedicineDTO maps a model, resolving the image key to a URL when a
// resolver is configured.
func NewMedicineDTO(ctx context.Context, m *models.Medicine, resolver storage.Resolver) MedicineDTO {
	dto := MedicineDTO{
		ID:                   m.ID,
		Name:                 m.Name,
		Description:          m.Description,
		Price:                m.Price,
		Stock:                m.Stock,
		CategoryID:           m.CategoryID,
		PrescriptionRequired: m.PrescriptionRequired,
		Manufacturer:         m.Manufacturer,
		ImageURL:             storage.ResolveOptional(ctx, resolver, m.ImageKey),
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
	if m.Category != nil {
		dto.Category = &CategoryDTO{
			ID:          m.Category.ID,
			Name:        m.Category.Name,
			Description: m.Category.Description,
		}
	}
	return dto
}

func newMedicineDTOs(ctx context.Context, rows []models.Medicine, resolver storage.Resolver) []MedicineDTO {
	out := make([]MedicineDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewMedicineDTO(ctx, &rows[i], resolver))
	}
	return out
}

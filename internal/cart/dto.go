package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
)

// CartDTO is the cart as returned to the customer, priced at current catalog prices.
type CartDTO struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Items     []CartItemDTO   `json:"items"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CartItemDTO struct {
	ID                   int64           `json:"id"`
	MedicineID           int64           `json:"medicine_id"`
	MedicineName         string          `json:"medicine_name,omitempty"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	Quantity             int             `json:"quantity"`
	LineTotal            decimal.Decimal `json:"line_total"`
	PrescriptionRequired bool            `json:"prescription_required"`
	PrescriptionID       *int64          `json:"prescription_id,omitempty"`
}

// NewCartDTO prices every line; lines whose medicine was not preloaded count as zero.
func NewCartDTO(c *models.Cart) *CartDTO {
	dto := &CartDTO{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     make([]CartItemDTO, 0, len(c.Items)),
		Total:     decimal.Zero,
		UpdatedAt: c.UpdatedAt,
	}
	for i := range c.Items {
		line := NewCartItemDTO(&c.Items[i])
		dto.Total = dto.Total.Add(line.LineTotal)
		dto.Items = append(dto.Items, line)
	}
	return dto
}

func NewCartItemDTO(item *models.CartItem) CartItemDTO {
	line := CartItemDTO{
		ID:             item.ID,
		MedicineID:     item.MedicineID,
		Quantity:       item.Quantity,
		PrescriptionID: item.PrescriptionID,
		UnitPrice:      decimal.Zero,
		LineTotal:      decimal.Zero,
	}
	if m := item.Medicine; m != nil {
		line.MedicineName = m.Name
		line.UnitPrice = m.Price
		line.PrescriptionRequired = m.PrescriptionRequired
		line.LineTotal = m.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	return line
}

package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickmed/quickmed-backend/pkg/db/models"
	"github.com/quickmed/quickmed-backend/pkg/enums"
	"github.com/quickmed/quickmed-backend/pkg/storage"
)

// OrderDTO is the order as returned by every order endpoint.
type OrderDTO struct {
	ID                    int64               `json:"id"`
	UserID                int64               `json:"user_id"`
	AddressID             int64               `json:"address_id"`
	TotalAmount           decimal.Decimal     `json:"total_amount"`
	Status                enums.OrderStatus   `json:"status"`
	PaymentStatus         enums.PaymentStatus `json:"payment_status"`
	PaymentMethod         enums.PaymentMethod `json:"payment_method"`
	DeliveryPartnerID     *int64              `json:"delivery_partner_id,omitempty"`
	DeliveryNotes         *string             `json:"delivery_notes,omitempty"`
	EstimatedDeliveryTime *time.Time          `json:"estimated_delivery_time,omitempty"`
	ActualDeliveryTime    *time.Time          `json:"actual_delivery_time,omitempty"`
	Items                 []OrderItemDTO      `json:"items"`
	Tracking              []TrackingDTO       `json:"tracking,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`
}

type OrderItemDTO struct {
	ID             int64           `json:"id"`
	MedicineID     int64           `json:"medicine_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	LineTotal      decimal.Decimal `json:"line_total"`
	PrescriptionID *int64          `json:"prescription_id,omitempty"`
}

type TrackingDTO struct {
	ID          int64             `json:"id"`
	Status      enums.OrderStatus `json:"status"`
	Location    *string           `json:"location,omitempty"`
	LocationURL *string           `json:"location_url,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
	UpdatedBy   int64             `json:"updated_by"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewOrderDTO(ctx context.Context, o *models.Order, resolver storage.Resolver) *OrderDTO {
	dto := &OrderDTO{
		ID:                    o.ID,
		UserID:                o.UserID,
		AddressID:             o.AddressID,
		TotalAmount:           o.TotalAmount,
		Status:                o.Status,
		PaymentStatus:         o.PaymentStatus,
		PaymentMethod:         o.PaymentMethod,
		DeliveryPartnerID:     o.DeliveryPartnerID,
		DeliveryNotes:         o.DeliveryNotes,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		ActualDeliveryTime:    o.ActualDeliveryTime,
		Items:                 make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             it.ID,
			MedicineID:     it.MedicineID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			LineTotal:      it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
			PrescriptionID: it.PrescriptionID,
		})
	}
	if len(o.Tracking) > 0 {
		dto.Tracking = newTrackingDTOs(ctx, o.Tracking, resolver)
	}
	return dto
}

// newTrackingDTOs resolves proof-of-delivery keys stored in location.
func newTrackingDTOs(ctx context.Context, rows []models.OrderTracking, resolver storage.Resolver) []TrackingDTO {
	out := make([]TrackingDTO, 0, len(rows))
	for _, t := range rows {
		entry := TrackingDTO{
			ID:        t.ID,
			Status:    t.Status,
			Location:  t.Location,
			Notes:     t.Notes,
			UpdatedBy: t.UpdatedBy,
			Timestamp: t.Timestamp,
		}
		if t.Status == enums.OrderStatusDelivered && resolver != nil {
			entry.LocationURL = storage.ResolveOptional(ctx, resolver, t.Location)
		}
		out = append(out, entry)
	}
	return out
}

package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quickmed/quickmed-backend/pkg/enums"
)

// Order is a placed purchase. Lines and tracking entries are immutable once written.
type Order struct {
	ID                    int64               `gorm:"column:id;primaryKey;autoIncrement"`
	UserID                int64               `gorm:"column:user_id;not null;index"`
	AddressID             int64               `gorm:"column:address_id;not null"`
	TotalAmount           decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status                enums.OrderStatus   `gorm:"column:status;type:varchar(32);not null;default:'pending'"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:varchar(32);not null;default:'pending'"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:varchar(32);not null"`
	DeliveryPartnerID     *int64              `gorm:"column:delivery_partner_id;index"`
	DeliveryNotes         *string             `gorm:"column:delivery_notes"`
	EstimatedDeliveryTime *time.Time          `gorm:"column:estimated_delivery_time"`
	ActualDeliveryTime    *time.Time          `gorm:"column:actual_delivery_time"`
	Items                 []OrderItem         `gorm:"foreignKey:OrderID"`
	Tracking              []OrderTracking     `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem freezes the unit price at placement time.
type OrderItem struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID        int64           `gorm:"column:order_id;not null;index"`
	MedicineID     int64           `gorm:"column:medicine_id;not null"`
	Quantity       int             `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	PrescriptionID *int64          `gorm:"column:prescription_id"`
}

// OrderTracking is an append-only status history entry.
type OrderTracking struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64             `gorm:"column:order_id;not null;index"`
	Status    enums.OrderStatus `gorm:"column:status;type:varchar(32);not null"`
	Location  *string           `gorm:"column:location"`
	Notes     *string           `gorm:"column:notes"`
	UpdatedBy int64             `gorm:"column:updated_by;not null"`
	Timestamp time.Time         `gorm:"column:timestamp;not null"`
}

func (OrderTracking) TableName() string {
	return "order_tracking"
}

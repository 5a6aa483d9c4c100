package models

import "time"

// Cart is the single pre-order staging area per user.
type Cart struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64      `gorm:"column:user_id;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one medicine line; a cart holds at most one line per medicine.
type CartItem struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	CartID         int64     `gorm:"column:cart_id;not null;uniqueIndex:idx_cart_items_cart_medicine"`
	MedicineID     int64     `gorm:"column:medicine_id;not null;uniqueIndex:idx_cart_items_cart_medicine"`
	Medicine       *Medicine `gorm:"foreignKey:MedicineID"`
	Quantity       int       `gorm:"column:quantity;not null"`
	PrescriptionID *int64    `gorm:"column:prescription_id"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import "time"

// User is the identity record the order workflow reads capabilities from.
// Accounts are provisioned by the identity service.
type User struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email             string    `gorm:"column:email;not null;uniqueIndex"`
	FullName          string    `gorm:"column:full_name;not null"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true"`
	IsPharmacyAdmin   bool      `gorm:"column:is_pharmacy_admin;not null;default:false"`
	IsDeliveryPartner bool      `gorm:"column:is_delivery_partner;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

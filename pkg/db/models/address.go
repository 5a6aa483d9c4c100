package models

// Address is a delivery destination owned by a user.
type Address struct {
	ID           int64   `gorm:"column:id;primaryKey;autoIncrement"`
	UserID       int64   `gorm:"column:user_id;not null;index"`
	AddressLine1 string  `gorm:"column:address_line1;not null"`
	AddressLine2 *string `gorm:"column:address_line2"`
	City         string  `gorm:"column:city;not null"`
	State        string  `gorm:"column:state;not null"`
	PostalCode   string  `gorm:"column:postal_code;not null"`
	IsDefault    bool    `gorm:"column:is_default;not null;default:false"`
}

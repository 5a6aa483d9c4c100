package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups medicines; alternatives are looked up within a category.
type Category struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string  `gorm:"column:name;not null;uniqueIndex"`
	Description *string `gorm:"column:description"`
}

// Medicine is a catalog entry. Stock only changes through order placement
// and the admin stock endpoint.
type Medicine struct {
	ID                   int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name                 string          `gorm:"column:name;not null;index"`
	Description          *string         `gorm:"column:description"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock                int             `gorm:"column:stock;not null;default:0"`
	CategoryID           int64           `gorm:"column:category_id;not null;index"`
	Category             *Category       `gorm:"foreignKey:CategoryID"`
	PrescriptionRequired bool            `gorm:"column:prescription_required;not null;default:false"`
	Manufacturer         *string         `gorm:"column:manufacturer"`
	ImageKey             *string         `gorm:"column:image_key"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

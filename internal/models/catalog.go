package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GarmentCategory groups garments (Jacket, Trousers, Shirt, ...).
type GarmentCategory struct {
	RecordModel
	Name        string  `gorm:"not null;uniqueIndex" json:"name"`
	Description *string `json:"description"`
	SortOrder   int     `gorm:"not null;default:0" json:"sort_order"`
	Active      bool    `gorm:"not null" json:"active"`
}

// Garment is a catalog item available to hire or buy.
type Garment struct {
	BaseModel
	CategoryID    uuid.UUID           `gorm:"type:uuid;index;not null" json:"category_id"`
	Category      *GarmentCategory    `json:"category,omitempty"`
	Name          string              `gorm:"not null" json:"name"`
	Description   *string             `json:"description"`
	Color         *string             `json:"color"`
	Material      *string             `json:"material"`
	Brand         *string             `json:"brand"`
	SKU           *string             `gorm:"column:sku" json:"sku"`
	RentalPrice   decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"rental_price"`
	PurchasePrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"purchase_price"`
	Active        bool                `gorm:"not null" json:"active"`
	SortOrder     int                 `gorm:"not null;default:0" json:"sort_order"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry reconciliation items count against.
type Product struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string           `gorm:"column:sku;not null;uniqueIndex"`
	Name        string           `gorm:"column:name;not null"`
	Description *string          `gorm:"column:description"`
	UnitCost    *decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,2)"`
	Price       decimal.Decimal  `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive    bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ReferenceUnitValue returns the monetary value one discrepancy unit is
// worth: cost when known, list price otherwise.
func (p Product) ReferenceUnitValue() decimal.Decimal {
	if p.UnitCost != nil {
		return *p.UnitCost
	}
	return p.Price
}

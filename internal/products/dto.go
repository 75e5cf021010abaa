package products

import (
	"github.com/shopspring/decimal"

	"github.com/tallyops/stockcount-backend/pkg/db/models"
)

// CreateProductInput carries validated catalog fields for a new product.
type CreateProductInput struct {
	SKU         string           `json:"sku" validate:"required,max=64"`
	Name        string           `json:"name" validate:"required,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	Price       decimal.Decimal  `json:"price" validate:"required"`
}

// UpdateProductInput carries partial catalog updates.
type UpdateProductInput struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	UnitCost    *decimal.Decimal `json:"unit_cost"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
}

// ListParams configures product list pagination and filtering.
type ListParams struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Cursor     string
}

// ListResult wraps returned products and the cursor for the next page.
type ListResult struct {
	Items  []models.Product `json:"items"`
	Cursor string           `json:"cursor"`
}

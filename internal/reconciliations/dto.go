package reconciliations

import (
	"github.com/google/uuid"

	"github.com/tallyops/stockcount-backend/pkg/db/models"
)

// ItemInput carries one counted product line from the API.
type ItemInput struct {
	ProductID         uuid.UUID `json:"product_id" validate:"required"`
	SystemCount       int       `json:"system_count" validate:"min=0"`
	PhysicalCount     int       `json:"physical_count" validate:"min=0"`
	DiscrepancyReason string    `json:"discrepancy_reason" validate:"required"`
	Notes             *string   `json:"notes" validate:"omitempty,max=2000"`
}

// CreateInput carries validated fields for a new reconciliation.
type CreateInput struct {
	Title       string      `json:"title" validate:"required,max=255"`
	Description *string     `json:"description" validate:"omitempty,max=2000"`
	Notes       *string     `json:"notes" validate:"omitempty,max=2000"`
	Items       []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput carries a partial header patch plus an optional full item
// replacement. A nil Items leaves the existing lines untouched.
type UpdateInput struct {
	Title       *string      `json:"title" validate:"omitempty,max=255"`
	Description *string      `json:"description" validate:"omitempty,max=2000"`
	Notes       *string      `json:"notes" validate:"omitempty,max=2000"`
	Items       *[]ItemInput `json:"items" validate:"omitempty,min=1,dive"`
}

// RejectInput carries the mandatory rejection reason.
type RejectInput struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ListParams configures reconciliation list filtering and pagination.
type ListParams struct {
	Status string
	Search string
	Limit  int
	Cursor string
}

// Detail pairs a reconciliation (with items) and its derived rollups.
type Detail struct {
	Reconciliation models.StockReconciliation `json:"reconciliation"`
	Totals         Totals                     `json:"totals"`
}

// ListResult wraps returned headers (items omitted) and the next-page cursor.
type ListResult struct {
	Items  []models.StockReconciliation `json:"items"`
	Cursor string                       `json:"cursor"`
}

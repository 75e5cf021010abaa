package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tallyops/stockcount-backend/pkg/enums"
)

// StockReconciliation is the approval-workflow header for a counting batch.
//
// Status only ever advances DRAFT → PENDING → {APPROVED | REJECTED}; a
// REJECTED record returns to DRAFT through an edit and cycles again.
type StockReconciliation struct {
	ID              uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title           string                     `gorm:"column:title;not null"`
	Description     *string                    `gorm:"column:description"`
	Status          enums.ReconciliationStatus `gorm:"column:status;type:text;not null;default:'DRAFT';index"`
	CreatedByID     uuid.UUID                  `gorm:"column:created_by_id;type:uuid;not null;index"`
	ApprovedByID    *uuid.UUID                 `gorm:"column:approved_by_id;type:uuid"`
	Notes           *string                    `gorm:"column:notes"`
	RejectionReason *string                    `gorm:"column:rejection_reason"`
	SubmittedAt     *time.Time                 `gorm:"column:submitted_at"`
	ApprovedAt      *time.Time                 `gorm:"column:approved_at"`
	Items           []ReconciliationItem       `gorm:"foreignKey:ReconciliationID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

// ReconciliationItem is one counted product line. Discrepancy and
// estimated impact are derived from the counts and the unit cost snapshot
// taken when the line was written; they are never set independently.
type ReconciliationItem struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReconciliationID  uuid.UUID               `gorm:"column:reconciliation_id;type:uuid;not null;index"`
	ProductID         uuid.UUID               `gorm:"column:product_id;type:uuid;not null"`
	ProductSKU        string                  `gorm:"column:product_sku;not null"`
	ProductName       string                  `gorm:"column:product_name;not null"`
	SystemCount       int                     `gorm:"column:system_count;not null"`
	PhysicalCount     int                     `gorm:"column:physical_count;not null"`
	Discrepancy       int                     `gorm:"column:discrepancy;not null"`
	DiscrepancyReason enums.DiscrepancyReason `gorm:"column:discrepancy_reason;type:text;not null"`
	UnitCost          decimal.Decimal         `gorm:"column:unit_cost;type:numeric(12,2);not null"`
	EstimatedImpact   decimal.Decimal         `gorm:"column:estimated_impact;type:numeric(14,2);not null"`
	Notes             *string                 `gorm:"column:notes"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

package reconciliations

import (
	"github.com/shopspring/decimal"

	"github.com/tallyops/stockcount-backend/pkg/db/models"
)

// Discrepancy returns the signed count difference: positive means surplus,
// negative means shortage.
func Discrepancy(systemCount, physicalCount int) int {
	return physicalCount - systemCount
}

// EstimatedImpact converts a discrepancy into money using the unit value
// snapshotted on the item. The sign follows the discrepancy.
func EstimatedImpact(discrepancy int, unitValue decimal.Decimal) decimal.Decimal {
	return unitValue.Mul(decimal.NewFromInt(int64(discrepancy)))
}

// Totals are header-level rollups derived on read; they are never stored.
type Totals struct {
	TotalDiscrepancy int             `json:"total_discrepancy"`
	TotalImpact      decimal.Decimal `json:"total_impact"`
}

// Rollup sums discrepancy and estimated impact over the given items.
func Rollup(items []models.ReconciliationItem) Totals {
	totals := Totals{TotalImpact: decimal.Zero}
	for _, item := range items {
		totals.TotalDiscrepancy += item.Discrepancy
		totals.TotalImpact = totals.TotalImpact.Add(item.EstimatedImpact)
	}
	return totals
}

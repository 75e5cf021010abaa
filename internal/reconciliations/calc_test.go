package reconciliations

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tallyops/stockcount-backend/pkg/db/models"
)

func TestDiscrepancySign(t *testing.T) {
	cases := []struct {
		name     string
		system   int
		physical int
		want     int
	}{
		{"shortage", 10, 8, -2},
		{"surplus", 5, 9, 4},
		{"exact", 7, 7, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Discrepancy(tc.system, tc.physical); got != tc.want {
				t.Fatalf("Discrepancy(%d, %d) = %d, want %d", tc.system, tc.physical, got, tc.want)
			}
		})
	}
}

func TestEstimatedImpactPreservesSign(t *testing.T) {
	unitCost := decimal.NewFromInt(100)

	impact := EstimatedImpact(-2, unitCost)
	if !impact.Equal(decimal.NewFromInt(-200)) {
		t.Fatalf("expected -200, got %s", impact)
	}

	impact = EstimatedImpact(3, decimal.RequireFromString("2.50"))
	if !impact.Equal(decimal.RequireFromString("7.50")) {
		t.Fatalf("expected 7.50, got %s", impact)
	}

	impact = EstimatedImpact(0, unitCost)
	if !impact.IsZero() {
		t.Fatalf("expected zero impact, got %s", impact)
	}
}

func TestRollupSumsItems(t *testing.T) {
	items := []models.ReconciliationItem{
		{Discrepancy: -2, EstimatedImpact: decimal.NewFromInt(-200)},
		{Discrepancy: 5, EstimatedImpact: decimal.RequireFromString("12.50")},
		{Discrepancy: 0, EstimatedImpact: decimal.Zero},
	}

	totals := Rollup(items)
	if totals.TotalDiscrepancy != 3 {
		t.Fatalf("expected total discrepancy 3, got %d", totals.TotalDiscrepancy)
	}
	if !totals.TotalImpact.Equal(decimal.RequireFromString("-187.50")) {
		t.Fatalf("expected total impact -187.50, got %s", totals.TotalImpact)
	}
}

func TestRollupEmpty(t *testing.T) {
	totals := Rollup(nil)
	if totals.TotalDiscrepancy != 0 || !totals.TotalImpact.IsZero() {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tallyops/stockcount-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestReconciliationMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_stock_reconciliations.sql")

	checks := []string{
		"CREATE TABLE stock_reconciliations",
		"CHECK (status IN ('DRAFT', 'PENDING', 'APPROVED', 'REJECTED'))",
		"created_by_id    UUID NOT NULL REFERENCES users (id)",
		"DROP TABLE stock_reconciliations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestItemMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_reconciliation_items.sql")

	checks := []string{
		"REFERENCES stock_reconciliations (id) ON DELETE CASCADE",
		"CHECK (system_count >= 0)",
		"CHECK (physical_count >= 0)",
		"CHECK (discrepancy_reason IN ('DAMAGE', 'THEFT', 'MISCOUNT', 'EXPIRED', 'OTHER'))",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

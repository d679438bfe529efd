package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/refermate/partner-portal-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestPayoutsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payouts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payouts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE payout_status AS ENUM ('pending', 'processing', 'completed', 'failed')",
		"CREATE TABLE payouts",
		"REFERENCES partners (id)",
		"CHECK (amount_cents = fee_cents + net_cents)",
		"DROP TABLE payouts",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

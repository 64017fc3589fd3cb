package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forkline/forkline-backend/pkg/migrate"
)

func TestValidateMigrationsDir(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CHECK (status IN ('placed', 'confirmed', 'delivered', 'cancelled'))",
		"CHECK (total_cents >= 0)",
		"CHECK (tax_cents >= 0 AND tax_cents <= total_cents)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_cart ON orders (cart_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_idempotency_keys_key ON idempotency_keys (key)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestProductsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_products.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock_qty >= 0)",
		"CHECK (tax_rate >= 0 AND tax_rate <= 100)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_products_sku ON products (sku)",
		"USING gin (name gin_trgm_ops)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_carts.sql")

	checks := []string{
		"CHECK (status IN ('open', 'converted'))",
		"CHECK (qty > 0)",
		"FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

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

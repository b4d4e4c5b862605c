package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lafabrik/boutique-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT uq_orders_stripe_session_id UNIQUE (stripe_session_id)",
		"CHECK (status IN ('pending', 'paid', 'fulfilled', 'canceled', 'refunded'))",
		"CHECK (fulfillment_mode IN ('delivery', 'pickup'))",
		"CREATE TABLE IF NOT EXISTS order_lines",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CHECK (qty >= 1 AND qty <= 10)",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPickupTokensMigrationEnforcesUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_pickup_tokens.sql")

	checks := []string{
		"CONSTRAINT uq_pickup_tokens_order_id UNIQUE (order_id)",
		"CONSTRAINT uq_pickup_tokens_token_hash UNIQUE (token_hash)",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	if strings.Contains(content, "token_clear") || strings.Contains(content, "secret") {
		t.Error("pickup_tokens must never store the clear secret")
	}
}

func TestWebhookEventsMigrationIsWriteOnce(t *testing.T) {
	content := readMigration(t, "*_create_webhook_events.sql")
	if !strings.Contains(content, "CONSTRAINT uq_webhook_events_event_id UNIQUE (event_id)") {
		t.Error("webhook_events needs a unique event_id constraint")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

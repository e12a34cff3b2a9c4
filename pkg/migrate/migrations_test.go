package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bazaarly/bazaarly-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir failed: %v", err)
	}
}

func TestRatingsMigrationEnforcesUniquePair(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_ratings.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no ratings migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX idx_product_reviewer ON ratings (product_id, reviewer_id)",
		"reviewer_id UUID REFERENCES users (id) ON DELETE SET NULL",
		"CHECK (stars >= 1 AND stars <= 5)",
		"DROP TABLE ratings",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartMigrationEnforcesOneCartPerUser(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_carts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no carts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE UNIQUE INDEX idx_carts_user_id ON carts (user_id)",
		"CREATE UNIQUE INDEX idx_cart_product ON cart_items (cart_id, product_id)",
		"ON DELETE CASCADE",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

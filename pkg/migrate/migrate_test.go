package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func TestEmbeddedMigrationsApplyOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	ctx := context.Background()
	dialect := DialectFor(config.DBConfig{Driver: config.DBDriverSQLite})
	if err := Run(ctx, sqlDB, dialect, "", "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}

	for _, table := range []string{"users", "cart_items", "orders", "outbox_events", "outbox_dlq"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s after migrations", table)
		}
	}

	if err := Run(ctx, sqlDB, dialect, "", "reset"); err != nil {
		t.Fatalf("goose reset: %v", err)
	}
	if conn.Migrator().HasTable("orders") {
		t.Fatal("expected orders table to be dropped after reset")
	}
}

func TestCartItemsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_cart_items.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no cart_items migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS cart_items",
		"CHECK (quantity >= 1)",
		"ux_cart_items_cart_product ON cart_items (cart_id, product_id)",
		"DROP TABLE IF EXISTS cart_items",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("expected shipped migrations to validate: %v", err)
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	path, err := CreateSQLMigration(dir, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260601093000_add_order_notes.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "add order notes", now); err == nil {
		t.Fatal("expected existing file to be refused")
	}
	if _, err := CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty slug to be refused")
	}
}

func TestValidateDirRejectsBrokenFiles(t *testing.T) {
	cases := map[string]string{
		"20260101000000_ok.sql":      "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id int);\n",
		"20260101000000_no_down.sql": "-- +goose Up\nCREATE TABLE x (id int);\n",
		"bad-name.sql":               "-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := ValidateDir(dir); err == nil {
			t.Fatalf("expected %s to fail validation", name)
		}
	}
}

func TestListDirOrdersByVersion(t *testing.T) {
	files, err := ListDir("migrations")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) < 4 || files[0].Name != "create_users" {
		t.Fatalf("unexpected order: %+v", files)
	}
	for i := 1; i < len(files); i++ {
		if files[i-1].Version >= files[i].Version {
			t.Fatalf("versions out of order at %d", i)
		}
	}
}

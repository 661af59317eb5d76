package migrate_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/maximegiguere1one/garantiepro-sub004/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestGenerationStatusMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_document_generation_statuses.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no generation status migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS document_generation_statuses",
		"UNIQUE (warranty_id, document_type)",
		"CHECK (status IN ('pending', 'generating', 'completed', 'failed'))",
		"DROP TABLE IF EXISTS document_generation_statuses",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "add_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Claim Channel")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "_add_claim_channel.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration does not validate: %v", err)
	}
}

func TestEmbeddedMigrationsApplyAndRollBack(t *testing.T) {
	goose.SetLogger(goose.NopLogger())
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}

	if err := migrate.Run(ctx, sqlDB, migrate.Dialect("sqlite"), "", "up"); err != nil {
		t.Fatalf("up: %v", err)
	}
	for _, table := range []string{
		"document_generation_statuses",
		"warranty_documents",
		"generation_errors",
		"contract_templates",
		"claim_tokens",
		"outbox_events",
	} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("table %s missing after up", table)
		}
	}

	err = conn.Exec(`INSERT INTO document_generation_statuses (id, warranty_id, document_type, status, created_at, updated_at)
VALUES (?, ?, 'contract', 'archived', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`, uuid.NewString(), uuid.NewString()).Error
	if err == nil {
		t.Fatal("expected status check constraint to reject unknown status")
	}

	if err := migrate.Run(ctx, sqlDB, migrate.Dialect("sqlite"), "", "reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if conn.Migrator().HasTable("warranty_documents") {
		t.Fatal("warranty_documents still present after reset")
	}
}

func TestDialect(t *testing.T) {
	if got := migrate.Dialect("sqlite"); got != "sqlite3" {
		t.Fatalf("sqlite dialect = %q", got)
	}
	if got := migrate.Dialect("postgres"); got != "postgres" {
		t.Fatalf("postgres dialect = %q", got)
	}
	if got := migrate.Dialect(""); got != "postgres" {
		t.Fatalf("default dialect = %q", got)
	}
}

package migrate

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestValidateEmbeddedMigrations(t *testing.T) {
	if err := ValidateDir(""); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestValidateFSRejects(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"duplicate version": {
			"m/20261001090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
			"m/20261001090000_b.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		},
		"missing down": {
			"m/20261001090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"down before up": {
			"m/20261001090000_a.sql": {Data: []byte("-- +goose Down\nSELECT 1;\n-- +goose Up\nSELECT 1;\n")},
		},
		"empty up": {
			"m/20261001090000_a.sql": {Data: []byte("-- +goose Up\n-- +goose StatementBegin\n-- todo\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ValidateFS(fsys, "m"); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateFSIgnoresOtherFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"m/README.md":            {Data: []byte("notes")},
		"m/20261001090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")},
		"m/nested/anything.sql":  {Data: []byte("garbage")},
	}
	if err := ValidateFS(fsys, "m"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSQLMigrationUsesClockAndTableName(t *testing.T) {
	prev := now
	now = func() time.Time { return time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })

	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Create Claim Channels!")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasSuffix(path, "20261015083000_create_claim_channels.sql") {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := CreateSQLMigration(dir, "create claim channels"); err == nil {
		t.Fatal("expected duplicate migration error")
	}
	if _, err := CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty name error")
	}
}

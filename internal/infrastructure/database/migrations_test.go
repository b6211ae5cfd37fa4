package database

import (
	"context"
	"testing"
	"testing/fstest"
	"time"
)

// testMigrations holds two sqlite migrations and one for another dialect.
var testMigrations = fstest.MapFS{
	"sqlite/20261018_120000_test_users.up.sql": {Data: []byte(
		"-- users\nCREATE TABLE test_users (\n  id INTEGER PRIMARY KEY,\n  name TEXT\n);\nCREATE INDEX idx_test_users_name ON test_users (name);\n")},
	"sqlite/20261018_120000_test_users.down.sql": {Data: []byte("DROP TABLE test_users;\n")},
	"sqlite/20261019_080000_test_posts.up.sql":   {Data: []byte("CREATE TABLE test_posts (id INTEGER PRIMARY KEY)")},
	"sqlite/README.md":                           {Data: []byte("ignored")},
	"postgres/20261018_120000_other.up.sql":      {Data: []byte("CREATE TABLE other (id BIGSERIAL)")},
}

func useTestMigrations(t *testing.T) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = testMigrations
	MigrationsDir = "."
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var found string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&found)
	return err == nil
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	useTestMigrations(t)

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	if !tableExists(t, db, "test_users") || !tableExists(t, db, "test_posts") {
		t.Fatal("sqlite migrations were not applied")
	}
	if tableExists(t, db, "other") {
		t.Error("migration of another dialect was applied")
	}

	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Fatalf("applied = %d, pending = %d, want 2, 0", len(applied), len(pending))
	}
	if applied[0].Version != "20261018_120000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("applied[0] = %+v", applied[0])
	}

	// Running again should be idempotent
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

// TestMigrateFailureRollsBack verifies a failing migration is not recorded.
func TestMigrateFailureRollsBack(t *testing.T) {
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() { MigrationsFS, MigrationsDir = origFS, origDir })
	MigrationsFS = fstest.MapFS{
		"sqlite/20261018_120000_broken.up.sql": {Data: []byte("CREATE TABLE ok_table (id INTEGER);\nNOT SQL;\n")},
	}
	MigrationsDir = "."

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error")
	}
	if tableExists(t, db, "ok_table") {
		t.Error("partial migration was committed")
	}
	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending = %d, want 1", len(pending))
	}
}

// TestMigrateNoMigrations verifies behaviour without migration files.
func TestMigrateNoMigrations(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = nil

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	in := "-- comment\nCREATE TABLE a (\n  id INTEGER\n);\n\nCREATE INDEX i ON a (id);\nDROP TABLE b"
	got := splitStatements(in)
	if len(got) != 3 {
		t.Fatalf("splitStatements() = %q, want 3 statements", got)
	}
	if got[0] != "CREATE TABLE a (\n  id INTEGER\n)" {
		t.Errorf("got[0] = %q", got[0])
	}
	if got[2] != "DROP TABLE b" {
		t.Errorf("got[2] = %q", got[2])
	}
}

// TestParseMigrationFilename verifies filename parsing.
func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantIsUp    bool
		wantOK      bool
	}{
		{"20261018_120000_readings.up.sql", "20261018_120000", true, true},
		{"20261018_120000_readings.down.sql", "20261018_120000", false, true},
		{"20261018_120000.up.sql", "20261018_120000", true, true},
		{"20261018_120000_readings.sql", "", false, false},
		{"readings.up.txt", "", false, false},
		{"single.up.sql", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if version != tt.wantVersion || isUp != tt.wantIsUp || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.filename, version, isUp, ok, tt.wantVersion, tt.wantIsUp, tt.wantOK)
			}
		})
	}
}

// TestExtractMigrationName verifies name extraction.
func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20261018_120000_readings.up.sql", "readings"},
		{"20261018_120000_add_index_on_time.down.sql", "add_index_on_time"},
		{"20261018_120000.up.sql", "20261018_120000"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := extractMigrationName(tt.filename); got != tt.want {
				t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

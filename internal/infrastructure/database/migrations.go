package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// MigrationsFS holds one directory of migration files per dialect below
// MigrationsDir. The migrations package fills it from its embedded files.
var MigrationsFS fs.FS

// MigrationsDir is the directory within MigrationsFS holding the dialect
// directories.
var MigrationsDir = "."

// Migration is one schema change, loaded from a file named
// YYYYMMDD_HHMMSS_name.up.sql. The matching .down.sql file is for manual
// rollback and is not loaded.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS
	Name    string
	UpSQL   string
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies every pending migration of the connection's dialect,
// oldest first, each in its own transaction. A failure stops the run and
// leaves earlier migrations committed. MySQL commits DDL implicitly, so a
// failed MySQL migration may leave part of its schema behind.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: The first migration failure
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, migrationsTableDDL(db.dialect)); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	_, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	insert := db.Rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)")
	for _, m := range pending {
		err := db.inTx(ctx, m.UpSQL, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, insert, m.Version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// GetMigrationStatus returns what has been applied and what is still
// pending, both oldest first.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - applied: Rows of schema_migrations
//   - pending: Migrations without a row
//   - err: If the table or the files cannot be read
func (db *DB) GetMigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	if applied, err = db.appliedMigrations(ctx); err != nil {
		return nil, nil, err
	}
	all, err := loadMigrations(db.dialect)
	if err != nil {
		return nil, nil, err
	}

	done := make(map[string]struct{}, len(applied))
	for _, r := range applied {
		done[r.Version] = struct{}{}
	}
	for _, m := range all {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func migrationsTableDDL(d Dialect) string {
	keyType := "TEXT"
	if d == MySQL {
		// MySQL cannot put a primary key on an unbounded TEXT column.
		keyType = "VARCHAR(32)"
	}
	return "CREATE TABLE IF NOT EXISTS schema_migrations (version " + keyType +
		" PRIMARY KEY, applied_at " + keyType + " NOT NULL)"
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var (
			r  MigrationRecord
			at string
		)
		if err := rows.Scan(&r.Version, &at); err != nil {
			return nil, fmt.Errorf("reading schema_migrations: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // written by Migrate
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	return out, nil
}

// inTx runs every statement of script and then book, committing only if
// all of them succeed.
func (db *DB) inTx(ctx context.Context, script string, book func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w\nSQL: %s", err, stmt)
		}
	}
	if err := book(tx); err != nil {
		return fmt.Errorf("updating schema_migrations: %w", err)
	}
	return tx.Commit()
}

// splitStatements cuts a script at semicolons that end a line and drops
// blank lines and "--" comments. Several drivers reject multi-statement Exec.
func splitStatements(script string) []string {
	var (
		out  []string
		cur  []string
		emit = func() {
			stmt := strings.TrimSuffix(strings.TrimSpace(strings.Join(cur, "\n")), ";")
			if stmt != "" {
				out = append(out, stmt)
			}
			cur = cur[:0]
		}
	)
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cur = append(cur, line)
		if strings.HasSuffix(trimmed, ";") {
			emit()
		}
	}
	emit()
	return out
}

// loadMigrations reads the migrations of d sorted by version. Files that
// do not follow the naming scheme are ignored, as is a missing directory.
func loadMigrations(d Dialect) ([]Migration, error) {
	if MigrationsFS == nil {
		return nil, nil
	}

	dir := path.Join(MigrationsDir, d.String())
	entries, err := fs.ReadDir(MigrationsFS, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		version, up, ok := parseMigrationFilename(e.Name())
		if e.IsDir() || !ok || !up {
			continue
		}
		body, err := fs.ReadFile(MigrationsFS, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading migrations: %w", err)
		}

		byVersion[version] = &Migration{
			Version: version,
			Name:    extractMigrationName(e.Name()),
			UpSQL:   string(body),
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })
	return out, nil
}

// parseMigrationFilename returns the version of name and whether it is
// the up or the down half. ok is false for files outside the scheme.
func parseMigrationFilename(name string) (version string, isUp bool, ok bool) {
	base, isSQL := strings.CutSuffix(name, ".sql")
	if !isSQL {
		return "", false, false
	}
	if base, isUp = strings.CutSuffix(base, ".up"); !isUp {
		var isDown bool
		if base, isDown = strings.CutSuffix(base, ".down"); !isDown {
			return "", false, false
		}
	}

	date, rest, found := strings.Cut(base, "_")
	if !found {
		return "", false, false
	}
	clock, _, _ := strings.Cut(rest, "_")
	return date + "_" + clock, isUp, true
}

// extractMigrationName returns the part after the version, e.g.
// "readings" for 20261018_120000_readings.up.sql, or the version itself
// when there is none.
func extractMigrationName(filename string) string {
	base := strings.TrimSuffix(filename, ".sql")
	base = strings.TrimSuffix(base, ".up")
	base = strings.TrimSuffix(base, ".down")

	if parts := strings.SplitN(base, "_", 3); len(parts) == 3 {
		return parts[2]
	}
	return base
}

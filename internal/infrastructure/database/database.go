package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql://
	_ "github.com/lib/pq"              // postgres://
	_ "github.com/mattn/go-sqlite3"    // sqlite://

	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
)

// Database configuration constants.
const (
	// dirPermissions is the permission mode for the SQLite database directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for the SQLite database file.
	filePermissions = 0600

	// msPerSecond converts seconds to milliseconds.
	msPerSecond = 1000

	// connectionTimeout bounds the initial ping.
	connectionTimeout = 5 * time.Second

	// connMaxIdleTime is how long idle connections are kept open.
	connMaxIdleTime = 30 * time.Minute

	// memoryPath opens a private in-memory SQLite database.
	memoryPath = ":memory:"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect int

// Supported dialects.
const (
	SQLite Dialect = iota
	MySQL
	Postgres
)

// String returns the dialect name, which is also its migrations directory.
func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case Postgres:
		return "postgres"
	default:
		return "sqlite"
	}
}

// DB wraps a sql.DB connection with dialect awareness, migration support,
// health checks, and lifecycle management.
type DB struct {
	*sql.DB
	dialect Dialect
	target  string
}

// connTarget is a parsed connection URL. display has credentials redacted.
type connTarget struct {
	driver  string
	dsn     string
	dialect Dialect
	display string
}

// Open connects to the database named by cfg.URL.
//
// For SQLite it creates the parent directory, applies the busy timeout,
// and restricts the file to its owner.
//
// Parameters:
//   - ctx: Context bounding the initial ping
//   - cfg: SQL backend configuration
//
// Returns:
//   - *DB: Connected database wrapper (migrations not yet applied)
//   - error: ErrInvalidURL, ErrUnsupportedScheme, or a connection failure
func Open(ctx context.Context, cfg config.SQLConfig) (*DB, error) {
	t, err := parseURL(cfg.URL, cfg.BusyTimeout)
	if err != nil {
		return nil, err
	}

	sqliteFile := t.dialect == SQLite && t.display != memoryPath
	if sqliteFile {
		if err := os.MkdirAll(filepath.Dir(t.display), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(t.driver, t.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", t.dialect, err)
	}

	if t.dialect == SQLite {
		// SQLite only supports one writer; an in-memory database lives
		// in a single connection.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying %s connection to %s: %w", t.dialect, t.display, err)
	}

	if sqliteFile {
		_ = os.Chmod(t.display, filePermissions) //nolint:errcheck // File appears on first write
	}

	db := New(sqlDB, t.dialect)
	db.target = t.display
	return db, nil
}

// New wraps an open sql.DB. Used by tests with a mocked driver.
func New(sqlDB *sql.DB, d Dialect) *DB {
	return &DB{DB: sqlDB, dialect: d}
}

// parseURL maps a connection URL to a driver and DSN.
func parseURL(raw string, busyTimeout int) (connTarget, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return connTarget{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, raw)
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		// sqlite://data/aha.db → "data/aha.db", sqlite:///tmp/aha.db → "/tmp/aha.db"
		path, _, _ := strings.Cut(rest, "?")
		if path == "" || path == "/" {
			path = memoryPath
		}
		dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout*msPerSecond)
		if path != memoryPath {
			dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
		}
		return connTarget{driver: "sqlite3", dsn: dsn, dialect: SQLite, display: path}, nil

	case "mysql":
		u, err := url.Parse(raw)
		if err != nil {
			return connTarget{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		applyDefaultPort(u, "3306")
		return connTarget{driver: "mysql", dsn: toMySQLDSN(u), dialect: MySQL, display: u.Redacted()}, nil

	case "postgres", "postgresql":
		u, err := url.Parse(raw)
		if err != nil {
			return connTarget{}, fmt.Errorf("%w: %w", ErrInvalidURL, err)
		}
		applyDefaultPort(u, "5432")
		u.Scheme = "postgres"
		return connTarget{driver: "postgres", dsn: u.String(), dialect: Postgres, display: u.Redacted()}, nil

	default:
		return connTarget{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

// applyDefaultPort sets port on u when none is present.
func applyDefaultPort(u *url.URL, port string) {
	if u.Port() == "" {
		u.Host = u.Hostname() + ":" + port
	}
}

// toMySQLDSN converts a mysql:// URL to the go-sql-driver/mysql DSN format:
// user:pass@tcp(host:port)/dbname?params
func toMySQLDSN(u *url.URL) string {
	var creds string
	if u.User != nil {
		creds = u.User.String() + "@"
	}

	dbname := strings.TrimPrefix(u.Path, "/")
	dsn := fmt.Sprintf("%stcp(%s)/%s", creds, u.Host, dbname)
	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}
	return dsn
}

// Dialect returns the connection's SQL flavour.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Target returns the connection target with credentials redacted.
func (db *DB) Target() string {
	return db.target
}

// Rebind rewrites ? placeholders for the connection's dialect.
// PostgreSQL uses $1, $2, ...; the others keep ?.
func (db *DB) Rebind(query string) string {
	return Rebind(db.dialect, query)
}

// Rebind rewrites ? placeholders for d. Question marks inside single-quoted
// literals are left alone.
func Rebind(d Dialect, query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close closes the database connection gracefully.
//
// Returns:
//   - error: If closing fails
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is accessible and functioning.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (db *DB) HealthCheck(ctx context.Context) error {
	var result int
	if err := db.DB.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// ExecContext rebinds query and executes it.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - query: SQL query with ? placeholders
//   - args: Arguments for placeholders
//
// Returns:
//   - sql.Result: Contains RowsAffected
//   - error: If execution fails
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := db.DB.ExecContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return result, nil
}

// QueryRowContext rebinds query and executes it, returning at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.DB.QueryRowContext(ctx, db.Rebind(query), args...)
}

// BeginTx starts a new transaction with the given options.
//
// Example:
//
//	tx, err := db.BeginTx(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback() // No-op if committed
//
//	// ... execute queries on tx, using db.Rebind ...
//
//	return tx.Commit()
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}

// Package sqlsink stores device readings in a relational database.
package sqlsink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/database"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/recorder"
	_ "github.com/nerrad567/aha-recorder/migrations" // registers the schema
)

// Name is the backend and section name.
const Name = "SQL"

const insertReading = `INSERT INTO readings
	(recorded_at, identifier, kind, name, present, functions, celsius, temp_offset, voltage, power, energy)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQL writes one readings row per device and tick.
type SQL struct {
	db *database.DB
}

// Kind returns the SQL backend type.
func Kind() recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, config.DefaultSQLConfig()),
		Open: func(s *config.Store, logger *logging.Logger) (recorder.Backend, error) {
			cfg, err := config.Get[config.SQLConfig](s, Name)
			if err != nil {
				return nil, err
			}
			return Open(context.Background(), cfg, logger)
		},
	}
}

// Open connects to cfg.URL and applies pending migrations.
func Open(ctx context.Context, cfg config.SQLConfig, logger *logging.Logger) (*SQL, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // reporting the migration failure instead
		return nil, fmt.Errorf("migrating %s database: %w", db.Dialect(), err)
	}

	logger.Info("database ready", "dialect", db.Dialect().String(), "target", db.Target())
	return New(db), nil
}

// New wraps an already migrated database.
func New(db *database.DB) *SQL {
	return &SQL{db: db}
}

// Log inserts the rows of snap in a single transaction. Either every
// device of the tick is stored or none is.
func (s *SQL) Log(ctx context.Context, tick time.Time, snap *device.Snapshot) error {
	if snap.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx, s.db.Rebind(insertReading))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	var insertErr error
	snap.Each(func(d *device.Device) {
		if insertErr != nil {
			return
		}
		if _, err := stmt.ExecContext(ctx, readingArgs(tick, d)...); err != nil {
			insertErr = fmt.Errorf("inserting reading of %s: %w", d.Identifier, err)
		}
	})
	if insertErr != nil {
		return insertErr
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing readings: %w", err)
	}
	return nil
}

// readingArgs returns the insert arguments for d; absent sensors are NULL.
func readingArgs(tick time.Time, d *device.Device) []any {
	var celsius, offset, voltage, power, energy sql.NullInt64
	if t := d.Temperature; t != nil {
		celsius = sql.NullInt64{Int64: int64(t.Celsius), Valid: true}
		offset = sql.NullInt64{Int64: int64(t.Offset), Valid: true}
	}
	if p := d.Powermeter; p != nil {
		voltage = sql.NullInt64{Int64: int64(p.Voltage), Valid: true}
		power = sql.NullInt64{Int64: int64(p.Power), Valid: true}
		energy = sql.NullInt64{Int64: int64(p.Energy), Valid: true}
	}

	return []any{
		tick.Unix(),
		d.Identifier,
		string(d.Kind),
		d.Name,
		d.Present,
		int64(d.Functions),
		celsius, offset,
		voltage, power, energy,
	}
}

// HealthCheck verifies the database answers queries.
func (s *SQL) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close closes the database.
func (s *SQL) Close() error {
	return s.db.Close()
}

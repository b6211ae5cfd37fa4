// Package csvsink appends temperature and energy readings to CSV files.
//
// Two files are kept in the configured directory:
//
//	temperature.csv  timestamp,id,temperature,offset
//	energy.csv       timestamp,id,voltage,power
//
// Files are opened in append mode; the header is written only when a file
// is empty. Values are the raw gateway integers (tenths of °C, mV, mW) and
// the timestamp is the tick in Unix seconds.
package csvsink

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/recorder"
)

// Name is the backend and section name.
const Name = "Csv"

// File names inside the output directory.
const (
	TemperatureFile = "temperature.csv"
	EnergyFile      = "energy.csv"
)

var (
	temperatureHeader = []string{"timestamp", "id", "temperature", "offset"}
	energyHeader      = []string{"timestamp", "id", "voltage", "power"}
)

// table is one append-only CSV file.
type table struct {
	file   *os.File
	writer *csv.Writer
}

func openTable(path string, header []string) (*table, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	t := &table{file: f, writer: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := t.write([][]string{header}); err != nil {
			f.Close()
			return nil, err
		}
	}
	return t, nil
}

func (t *table) write(records [][]string) error {
	if len(records) == 0 {
		return nil
	}
	if err := t.writer.WriteAll(records); err != nil {
		return err
	}
	return t.writer.Error()
}

// CSV is the Csv backend.
type CSV struct {
	temperature *table
	energy      *table
	logger      *logging.Logger
}

// Kind returns the Csv backend type.
func Kind() recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, config.DefaultCSVConfig()),
		Open: func(s *config.Store, logger *logging.Logger) (recorder.Backend, error) {
			cfg, err := config.Get[config.CSVConfig](s, Name)
			if err != nil {
				return nil, err
			}
			return Open(cfg, logger)
		},
	}
}

// Open opens (or creates) both CSV files in cfg.OutDir.
func Open(cfg config.CSVConfig, logger *logging.Logger) (*CSV, error) {
	temperature, err := openTable(filepath.Join(cfg.OutDir, TemperatureFile), temperatureHeader)
	if err != nil {
		return nil, fmt.Errorf("cannot open temperature outfile: %w", err)
	}

	energy, err := openTable(filepath.Join(cfg.OutDir, EnergyFile), energyHeader)
	if err != nil {
		temperature.file.Close()
		return nil, fmt.Errorf("cannot open energy outfile: %w", err)
	}

	logger.Info("appending readings", "dir", cfg.OutDir)
	return &CSV{temperature: temperature, energy: energy, logger: logger}, nil
}

// Log appends one row per device reading.
func (c *CSV) Log(_ context.Context, tick time.Time, snap *device.Snapshot) error {
	ts := strconv.FormatInt(tick.Unix(), 10)

	var temps, energy [][]string
	snap.Each(func(d *device.Device) {
		if t := d.Temperature; t != nil {
			temps = append(temps, []string{
				ts,
				d.Identifier,
				strconv.Itoa(int(t.Celsius)),
				strconv.Itoa(int(t.Offset)),
			})
		}
		if p := d.Powermeter; p != nil {
			energy = append(energy, []string{
				ts,
				d.Identifier,
				strconv.FormatUint(uint64(p.Voltage), 10),
				strconv.FormatUint(uint64(p.Power), 10),
			})
		}
	})

	if err := c.temperature.write(temps); err != nil {
		return fmt.Errorf("writing %s: %w", TemperatureFile, err)
	}
	if err := c.energy.write(energy); err != nil {
		return fmt.Errorf("writing %s: %w", EnergyFile, err)
	}
	return nil
}

// Close flushes and closes both files.
func (c *CSV) Close() error {
	c.temperature.writer.Flush()
	c.energy.writer.Flush()
	return errors.Join(c.temperature.file.Close(), c.energy.file.Close())
}

// Package console prints every snapshot as a table on standard output.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nerrad567/aha-recorder/internal/device"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/config"
	"github.com/nerrad567/aha-recorder/internal/infrastructure/logging"
	"github.com/nerrad567/aha-recorder/internal/recorder"
)

// Name is the backend and section name.
const Name = "Console"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	absentStyle = lipgloss.NewStyle().Padding(0, 1).Faint(true)
)

var headers = []string{"ID", "NAME", "PRESENT", "TEMP °C", "POWER W", "ENERGY Wh"}

// Console renders snapshots to a writer.
type Console struct {
	out io.Writer
}

// New creates a Console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out}
}

// Kind returns the Console backend type. It has no settings.
func Kind() recorder.Kind {
	return KindWithWriter(os.Stdout)
}

// KindWithWriter returns the Console backend type writing to out.
func KindWithWriter(out io.Writer) recorder.Kind {
	return recorder.Kind{
		Name:     Name,
		Register: recorder.Section(Name, struct{}{}),
		Open: func(_ *config.Store, _ *logging.Logger) (recorder.Backend, error) {
			return New(out), nil
		},
	}
}

// Log prints one table for snap.
func (c *Console) Log(_ context.Context, tick time.Time, snap *device.Snapshot) error {
	rows := make([][]string, 0, snap.Len())
	present := make([]bool, 0, snap.Len())
	snap.Each(func(d *device.Device) {
		rows = append(rows, row(d))
		present = append(present, d.Present)
	})

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(r, _ int) lipgloss.Style {
			switch {
			case r == table.HeaderRow:
				return headerStyle
			case r >= 0 && r < len(present) && !present[r]:
				return absentStyle
			default:
				return cellStyle
			}
		})

	title := fmt.Sprintf("%s  %d devices", tick.Format(time.DateTime), snap.Len())
	if _, err := fmt.Fprintf(c.out, "%s\n%s\n", titleStyle.Render(title), t.String()); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	return nil
}

func row(d *device.Device) []string {
	temp, power, energy := "-", "-", "-"
	if d.Temperature != nil {
		temp = strconv.FormatFloat(d.Temperature.Degrees(), 'f', 1, 64)
	}
	if d.Powermeter != nil {
		power = strconv.FormatFloat(d.Powermeter.Watts(), 'f', 2, 64)
		energy = strconv.FormatUint(uint64(d.Powermeter.Energy), 10)
	}

	presence := "no"
	if d.Present {
		presence = "yes"
	}
	return []string{d.Identifier, d.Name, presence, temp, power, energy}
}

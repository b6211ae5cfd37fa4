package tsdb

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/aha-recorder/internal/device"
)

// Measurement names written by this package.
const (
	MeasurementTemperature = "aha_temperature"
	MeasurementEnergy      = "aha_energy"
)

// WriteTemperature queues a temperature reading.
//
// Fields: celsius (degrees, float) and offset (tenths of a degree, integer).
func (c *Client) WriteTemperature(identifier, name string, t device.Temperature, at time.Time) {
	c.addLine(formatLineProtocol(
		MeasurementTemperature,
		deviceTags(identifier, name),
		map[string]any{
			"celsius": t.Degrees(),
			"offset":  int64(t.Offset),
		},
		at,
	))
}

// WriteEnergy queues an energy meter reading.
//
// Fields: voltage (V), power (W) and energy (Wh, integer).
func (c *Client) WriteEnergy(identifier, name string, p device.Powermeter, at time.Time) {
	c.addLine(formatLineProtocol(
		MeasurementEnergy,
		deviceTags(identifier, name),
		map[string]any{
			"voltage": p.Volts(),
			"power":   p.Watts(),
			"energy":  int64(p.Energy),
		},
		at,
	))
}

// WritePoint queues a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	c.addLine(formatLineProtocol(measurement, tags, fields, at))
}

// deviceTags returns the tag set for a device. An empty name is omitted,
// since line protocol has no empty tag values.
func deviceTags(identifier, name string) map[string]string {
	tags := map[string]string{"device": identifier}
	if name != "" {
		tags["name"] = name
	}
	return tags
}

// formatLineProtocol renders one point as
//
//	measurement,tag=value,... field=value,... unix_nanoseconds
//
// with tags and fields in key order so equal points give equal lines.
func formatLineProtocol(measurement string, tags map[string]string, fields map[string]any, t time.Time) string {
	var b strings.Builder
	b.WriteString(measurementEscaper.Replace(measurement))

	for _, k := range slices.Sorted(maps.Keys(tags)) {
		fmt.Fprintf(&b, ",%s=%s", tagEscaper.Replace(k), tagEscaper.Replace(tags[k]))
	}

	sep := byte(' ')
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		b.WriteByte(sep)
		b.WriteString(tagEscaper.Replace(k))
		b.WriteByte('=')
		b.WriteString(fieldValue(fields[k]))
		sep = ','
	}

	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(t.UnixNano(), 10))
	return b.String()
}

// fieldValue encodes integers with the "i" suffix and floats without an
// exponent. Unknown types are written as quoted strings.
func fieldValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val) + "i"
	case int64:
		return strconv.FormatInt(val, 10) + "i"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return `"` + fieldStringEscaper.Replace(val) + `"`
	default:
		return `"` + fieldStringEscaper.Replace(fmt.Sprint(val)) + `"`
	}
}

// Line breaks are dropped outright; they would end the line.
var (
	tagEscaper         = strings.NewReplacer("\n", "", "\r", "", " ", `\ `, ",", `\,`, "=", `\=`)
	measurementEscaper = strings.NewReplacer("\n", "", "\r", "", " ", `\ `, ",", `\,`)
	fieldStringEscaper = strings.NewReplacer("\n", "", "\r", "", `\`, `\\`, `"`, `\"`)
)

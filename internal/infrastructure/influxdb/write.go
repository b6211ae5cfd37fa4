package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/aha-recorder/internal/device"
)

// Measurement names.
const (
	MeasurementTemperature = "temperature"
	MeasurementEnergy      = "energy"
)

func deviceTags(identifier, name string) map[string]string {
	return map[string]string{
		"device_id": identifier,
		"name":      name,
	}
}

// WriteTemperature queues a temperature point for one device.
func (c *Client) WriteTemperature(identifier, name string, t device.Temperature, at time.Time) {
	c.WritePoint(MeasurementTemperature, deviceTags(identifier, name), map[string]any{
		"celsius": t.Degrees(),
		"offset":  int64(t.Offset),
	}, at)
}

// WriteEnergy queues an energy meter point for one device.
func (c *Client) WriteEnergy(identifier, name string, p device.Powermeter, at time.Time) {
	c.WritePoint(MeasurementEnergy, deviceTags(identifier, name), map[string]any{
		"voltage": p.Volts(),
		"power":   p.Watts(),
		"energy":  int64(p.Energy),
	}, at)
}

// WritePoint queues a point with explicit tags, fields and timestamp.
// Points written after Close are dropped.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}

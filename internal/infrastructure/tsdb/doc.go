// Package tsdb writes device readings to VictoriaMetrics using InfluxDB line
// protocol over HTTP.
//
// Each device with a temperature sensor yields one aha_temperature line and
// each device with an energy meter one aha_energy line per tick:
//
//	aha_temperature,device=08761\ 0000434,name=Socket celsius=21.5,offset=-5i 1760000000000000000
//	aha_energy,device=08761\ 0000434,name=Socket energy=1234i,power=4.5,voltage=230 1760000000000000000
//
// VictoriaMetrics exposes these as aha_temperature_celsius, aha_energy_power
// and so on.
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// Writes are batched internally and flushed on size threshold or timer.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are reported via a callback.
// Connection and health check errors are returned directly.
package tsdb

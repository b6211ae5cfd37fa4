// Package device provides the typed model of gateway devices and the
// immutable per-tick Snapshot handed to every recording backend.
//
// # Parsing
//
// ParseDeviceList walks a <devicelist> element as returned by
// getdevicelistinfos. Only <device> and <group> children are considered.
// Readings are parsed according to the function bitmask:
//
//	functionbitmask & TemperatureSensor  →  <temperature><celsius/><offset/></temperature>
//	functionbitmask & EnergyMeter        →  <powermeter><voltage/><power/><energy/></powermeter>
//
// Any malformed field fails the whole list; a partial snapshot is never
// produced.
//
// # Units
//
// Values are kept exactly as the gateway reports them:
//   - Temperature.Celsius and Offset: tenths of a degree Celsius
//   - Powermeter.Voltage: millivolts
//   - Powermeter.Power: milliwatts
//   - Powermeter.Energy: watt hours
//
// # Sharing
//
// A Snapshot is built once per tick and read concurrently by every backend.
// Nothing in this package mutates a Snapshot after NewSnapshot returns and
// consumers must not either.
package device

package device

import (
	"strings"
	"time"
)

// Functions is the gateway's function bitmask describing what a device can do.
type Functions uint16

// Function flags as defined by the gateway's home automation interface.
const (
	HANFUNDevice      Functions = 1 << 0
	AlarmSensor       Functions = 1 << 4
	RadiatorControl   Functions = 1 << 6
	EnergyMeter       Functions = 1 << 7
	TemperatureSensor Functions = 1 << 8
	SwitchSocket      Functions = 1 << 9
	DECTRepeater      Functions = 1 << 10
	Microphone        Functions = 1 << 11
	HANFUNUnit        Functions = 1 << 13
)

// knownFunctions masks out bits this package does not know about.
const knownFunctions = HANFUNDevice | AlarmSensor | RadiatorControl | EnergyMeter |
	TemperatureSensor | SwitchSocket | DECTRepeater | Microphone | HANFUNUnit

var functionNames = []struct {
	flag Functions
	name string
}{
	{HANFUNDevice, "hanfun_device"},
	{AlarmSensor, "alarm_sensor"},
	{RadiatorControl, "radiator_control"},
	{EnergyMeter, "energy_meter"},
	{TemperatureSensor, "temperature_sensor"},
	{SwitchSocket, "switch_socket"},
	{DECTRepeater, "dect_repeater"},
	{Microphone, "microphone"},
	{HANFUNUnit, "hanfun_unit"},
}

// Has reports whether every flag in flags is set.
func (f Functions) Has(flags Functions) bool {
	return f&flags == flags
}

// Names returns the names of the set flags in bit order.
func (f Functions) Names() []string {
	names := make([]string, 0, len(functionNames))
	for _, fn := range functionNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// String returns the set flags joined by "|".
func (f Functions) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Names(), "|")
}

// Kind distinguishes single devices from device groups.
type Kind string

// Kinds of devicelist entries.
const (
	KindDevice Kind = "device"
	KindGroup  Kind = "group"
)

// Common holds the attributes every device and group carries.
type Common struct {
	// Identifier is the gateway's unique id (AIN), e.g. "08761 0000434".
	Identifier string `json:"identifier"`

	// ID is the gateway-internal numeric id.
	ID uint32 `json:"id"`

	Functions       Functions `json:"functions"`
	FirmwareVersion string    `json:"fwversion"`
	Manufacturer    string    `json:"manufacturer"`
	ProductName     string    `json:"productname"`
	Name            string    `json:"name"`
	Present         bool      `json:"present"`
}

// Temperature is a temperature reading in tenths of a degree Celsius.
type Temperature struct {
	Celsius int16 `json:"celsius"`
	Offset  int16 `json:"offset"`
}

// Degrees returns the reading in degrees Celsius.
func (t Temperature) Degrees() float64 {
	return float64(t.Celsius) / 10
}

// Powermeter is an energy meter reading.
type Powermeter struct {
	Voltage uint32 `json:"voltage"` // mV
	Power   uint32 `json:"power"`   // mW
	Energy  uint32 `json:"energy"`  // Wh
}

// Volts returns Voltage in volts.
func (p Powermeter) Volts() float64 {
	return float64(p.Voltage) / 1000
}

// Watts returns Power in watts.
func (p Powermeter) Watts() float64 {
	return float64(p.Power) / 1000
}

// Device is one entry of the gateway's device list.
// Temperature and Powermeter are nil when the device lacks the capability.
type Device struct {
	Kind Kind `json:"kind"`
	Common
	Temperature *Temperature `json:"temperature,omitempty"`
	Powermeter  *Powermeter  `json:"powermeter,omitempty"`
}

// Snapshot is the device list fetched in one polling tick.
//
// A Snapshot is immutable once built and is shared read-only by every
// backend that receives it.
type Snapshot struct {
	fetchedAt time.Time
	devices   []Device
}

// NewSnapshot builds a Snapshot from devices. The slice is copied.
func NewSnapshot(fetchedAt time.Time, devices []Device) *Snapshot {
	cpy := make([]Device, len(devices))
	copy(cpy, devices)
	return &Snapshot{fetchedAt: fetchedAt, devices: cpy}
}

// FetchedAt returns when the device list was received.
func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

// Len returns the number of devices.
func (s *Snapshot) Len() int {
	return len(s.devices)
}

// Devices returns a copy of the devices in gateway order.
func (s *Snapshot) Devices() []Device {
	cpy := make([]Device, len(s.devices))
	copy(cpy, s.devices)
	return cpy
}

// Each calls fn for every device in gateway order. The pointer is only valid
// during the call and must not be used to modify the device.
func (s *Snapshot) Each(fn func(d *Device)) {
	for i := range s.devices {
		d := s.devices[i]
		fn(&d)
	}
}

// Find returns the device with the given identifier.
func (s *Snapshot) Find(identifier string) (Device, bool) {
	for _, d := range s.devices {
		if d.Identifier == identifier {
			return d, true
		}
	}
	return Device{}, false
}

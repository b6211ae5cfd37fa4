package device

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/nerrad567/aha-recorder/internal/infrastructure/xmltree"
)

// rootName is the root element of a getdevicelistinfos answer.
const rootName = "devicelist"

var errPresent = errors.New("must be 0 or 1")

// Parse reads a getdevicelistinfos document.
func Parse(r io.Reader) ([]Device, error) {
	root, err := xmltree.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("decoding device list: %w", err)
	}
	return ParseDeviceList(root)
}

// ParseDeviceList parses every <device> and <group> child of a <devicelist>
// element. Other children are ignored. The first malformed entry fails the
// whole list.
func ParseDeviceList(root *xmltree.Node) ([]Device, error) {
	if root.Name != rootName {
		return nil, fmt.Errorf("%w: root element is <%s>", ErrNotDeviceList, root.Name)
	}

	devices := make([]Device, 0, len(root.Children()))
	for _, node := range root.Children() {
		kind := Kind(node.Name)
		if kind != KindDevice && kind != KindGroup {
			continue
		}

		d, err := parseDevice(node)
		if err != nil {
			return nil, err
		}
		d.Kind = kind
		devices = append(devices, d)
	}
	return devices, nil
}

func parseDevice(node *xmltree.Node) (Device, error) {
	common, err := parseCommon(node)
	if err != nil {
		return Device{}, err
	}

	d := Device{Common: common}

	if common.Functions.Has(TemperatureSensor) {
		t, err := parseTemperature(node)
		if err != nil {
			return Device{}, withDevice(err, common.Identifier)
		}
		d.Temperature = &t
	}

	if common.Functions.Has(EnergyMeter) {
		p, err := parsePowermeter(node)
		if err != nil {
			return Device{}, withDevice(err, common.Identifier)
		}
		d.Powermeter = &p
	}

	return d, nil
}

func parseCommon(node *xmltree.Node) (Common, error) {
	var c Common
	var err error

	if c.Identifier, err = node.Attr("identifier"); err != nil {
		return c, err
	}

	id, err := node.Attr("id")
	if err != nil {
		return c, err
	}
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return c, &FieldError{Device: c.Identifier, Field: "id", Value: id, Err: err}
	}
	c.ID = uint32(n)

	mask, err := node.Attr("functionbitmask")
	if err != nil {
		return c, withDevice(err, c.Identifier)
	}
	bits, err := strconv.ParseUint(mask, 10, 16)
	if err != nil {
		return c, &FieldError{Device: c.Identifier, Field: "functionbitmask", Value: mask, Err: err}
	}
	c.Functions = Functions(bits) & knownFunctions

	if c.FirmwareVersion, err = node.Attr("fwversion"); err != nil {
		return c, withDevice(err, c.Identifier)
	}
	if c.Manufacturer, err = node.Attr("manufacturer"); err != nil {
		return c, withDevice(err, c.Identifier)
	}
	if c.ProductName, err = node.Attr("productname"); err != nil {
		return c, withDevice(err, c.Identifier)
	}
	if c.Name, err = node.ChildText("name"); err != nil {
		return c, withDevice(err, c.Identifier)
	}

	present, err := node.ChildText("present")
	if err != nil {
		return c, withDevice(err, c.Identifier)
	}
	switch present {
	case "0":
		c.Present = false
	case "1":
		c.Present = true
	default:
		return c, &FieldError{
			Device: c.Identifier,
			Field:  "present",
			Value:  present,
			Err:    errPresent,
		}
	}

	return c, nil
}

func parseTemperature(node *xmltree.Node) (Temperature, error) {
	var t Temperature

	el, err := node.Child("temperature")
	if err != nil {
		return t, err
	}
	if t.Celsius, err = int16Field(el, "celsius"); err != nil {
		return t, err
	}
	if t.Offset, err = int16Field(el, "offset"); err != nil {
		return t, err
	}
	return t, nil
}

func parsePowermeter(node *xmltree.Node) (Powermeter, error) {
	var p Powermeter

	el, err := node.Child("powermeter")
	if err != nil {
		return p, err
	}
	if p.Voltage, err = uint32Field(el, "voltage"); err != nil {
		return p, err
	}
	if p.Power, err = uint32Field(el, "power"); err != nil {
		return p, err
	}
	if p.Energy, err = uint32Field(el, "energy"); err != nil {
		return p, err
	}
	return p, nil
}

func int16Field(el *xmltree.Node, name string) (int16, error) {
	text, err := el.ChildText(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(text, 10, 16)
	if err != nil {
		return 0, &FieldError{Field: name, Value: text, Err: err}
	}
	return int16(v), nil
}

func uint32Field(el *xmltree.Node, name string) (uint32, error) {
	text, err := el.ChildText(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, &FieldError{Field: name, Value: text, Err: err}
	}
	return uint32(v), nil
}

// withDevice attaches the device identifier to err.
func withDevice(err error, identifier string) error {
	if fe, ok := err.(*FieldError); ok {
		if fe.Device == "" {
			fe.Device = identifier
		}
		return fe
	}
	return fmt.Errorf("device %q: %w", identifier, err)
}

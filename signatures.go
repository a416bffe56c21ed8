package irbridge

import (
	"path/filepath"
	"strings"
)

// vendorDrivers maps USB vendors whose serial adapters are claimed by a
// dedicated usb-serial driver
var vendorDrivers = map[uint16]string{
	0x0403: "ftdi_sio", // FTDI
	0x10c4: "cp210x",   // Silicon Labs
	0x067b: "pl2303",   // Prolific
	0x1a86: "ch341",    // WCH
}

// extendedIDs lists serial-capable products from vendors that are not
// serial-only
var extendedIDs = []DeviceID{
	{Vendor: 0x2341, Product: 0x0043}, // Arduino Uno
	{Vendor: 0x2341, Product: 0x0001},
	{Vendor: 0x2a03, Product: 0x0043}, // Arduino.org Uno
	{Vendor: 0x0483, Product: 0x5740}, // STM32 virtual COM port
	{Vendor: 0x04d8, Product: 0x000a}, // Microchip CDC RS-232
	{Vendor: 0x16c0, Product: 0x0483}, // Teensy serial
	{Vendor: 0x239a, Product: 0x800b}, // Adafruit Feather
	{Vendor: 0x2e8a, Product: 0x000a}, // Raspberry Pi Pico
	{Vendor: 0x04e2, Product: 0x1410}, // Exar XR21V1410
	{Vendor: 0x0557, Product: 0x2008}, // ATEN UC-232A
	{Vendor: 0x066f, Product: 0x4200}, // SigmaTel IrDA bridge
	{Vendor: 0x09c4, Product: 0x0011}, // ACTiSYS IR-4000US
	{Vendor: 0x0b8c, Product: 0x0001}, // Kingsun IrDA
}

// knownDrivers are kernel drivers that always expose a usable tty
var knownDrivers = map[string]bool{
	"ftdi_sio": true,
	"cp210x":   true,
	"pl2303":   true,
	"ch341":    true,
	"cdc_acm":  true,
}

// signatureTable decides whether a device is a serial adapter
type signatureTable struct {
	ids map[DeviceID]bool
}

func newSignatureTable(extra []DeviceID) *signatureTable {
	t := &signatureTable{ids: make(map[DeviceID]bool, len(extendedIDs)+len(extra))}
	for _, id := range extendedIDs {
		t.ids[id] = true
	}
	for _, id := range extra {
		t.ids[id] = true
	}
	return t
}

// Matches reports whether d is claimed by a known serial driver, listed in
// the product tables, or is a CDC-ACM class device
func (t *signatureTable) Matches(d Device) bool {
	if _, ok := vendorDrivers[d.VendorID]; ok {
		return true
	}
	if t.ids[d.USBID()] {
		return true
	}
	for _, p := range d.Ports {
		if knownDrivers[p.Driver] {
			return true
		}
		if strings.HasPrefix(filepath.Base(p.Path), "ttyACM") {
			return true
		}
	}
	return false
}

// Filter returns the matching devices, order preserved
func (t *signatureTable) Filter(devices []Device) []Device {
	var matched []Device
	for _, d := range devices {
		if len(d.Ports) > 0 && t.Matches(d) {
			matched = append(matched, d)
		}
	}
	return matched
}

// DriverName returns the expected driver for d, or "" when unknown
func DriverName(d Device) string {
	for _, p := range d.Ports {
		if p.Driver != "" {
			return p.Driver
		}
	}
	if driver, ok := vendorDrivers[d.VendorID]; ok {
		return driver
	}
	for _, p := range d.Ports {
		if strings.HasPrefix(filepath.Base(p.Path), "ttyACM") {
			return "cdc_acm"
		}
	}
	return ""
}

// IsSerialCapable reports whether d would be picked up by the serial
// channel, given the same extra ids
func IsSerialCapable(d Device, extra ...DeviceID) bool {
	return len(d.Ports) > 0 && newSignatureTable(extra).Matches(d)
}

package irbridge

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Roots of the device trees, replaced in tests
var (
	devDir    = "/dev"
	sysfsRoot = "/sys"
)

// enumeratePorts is the OS enumeration entry point, replaced in tests
var enumeratePorts = enumerator.GetDetailedPortsList

// DeviceID is a USB vendor/product pair
type DeviceID struct {
	Vendor  uint16
	Product uint16
}

// String formats the pair as "vvvv:pppp", the form lsusb prints
func (id DeviceID) String() string {
	return fmt.Sprintf("%04x:%04x", id.Vendor, id.Product)
}

// ParseDeviceID parses a "vvvv:pppp" hex pair
func ParseDeviceID(s string) (DeviceID, error) {
	vendor, product, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return DeviceID{}, fmt.Errorf("%w: device id %q", ErrInvalidConfig, s)
	}
	v, err := strconv.ParseUint(vendor, 16, 16)
	if err != nil {
		return DeviceID{}, fmt.Errorf("%w: device id %q", ErrInvalidConfig, s)
	}
	p, err := strconv.ParseUint(product, 16, 16)
	if err != nil {
		return DeviceID{}, fmt.Errorf("%w: device id %q", ErrInvalidConfig, s)
	}
	return DeviceID{Vendor: uint16(v), Product: uint16(p)}, nil
}

// DevicePort is one tty exposed by a USB device
type DevicePort struct {
	Path          string
	Interface     int    // bInterfaceNumber, -1 when unknown
	InterfaceName string // interface string descriptor as exported by sysfs
	Driver        string
}

// Device is an attached USB device with one or more serial ports
type Device struct {
	ID           string // "vvvv-pppp" or "vvvv-pppp-SERIAL"
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Manufacturer string
	Product      string
	BusNumber    string
	DeviceNumber string
	Ports        []DevicePort // ordered by interface number
}

// USBID returns the vendor/product pair
func (d Device) USBID() DeviceID {
	return DeviceID{Vendor: d.VendorID, Product: d.ProductID}
}

// PortPaths returns the tty paths in port index order
func (d Device) PortPaths() []string {
	paths := make([]string, len(d.Ports))
	for i, p := range d.Ports {
		paths[i] = p.Path
	}
	return paths
}

// deviceIdentity builds the stable identity persisted in selection keys
func deviceIdentity(vendor, product uint16, serial string) string {
	id := fmt.Sprintf("%04x-%04x", vendor, product)
	if serial != "" {
		id += "-" + serial
	}
	return id
}

// ListPorts returns every serial tty under /dev, USB or not. Virtual
// terminals and pseudo-terminals are excluded.
func ListPorts() ([]string, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		name := entry.Name()
		if matchesExcludePattern(name) || !matchesSerialPattern(name) {
			continue
		}
		fullPath := filepath.Join(devDir, name)
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
	regexp.MustCompile(`^cu\..+$`),    // macOS callout devices
}

var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),
	regexp.MustCompile(`^console$`),
	regexp.MustCompile(`^ptmx$`),
	regexp.MustCompile(`^pty.*$`),
}

func matchesSerialPattern(name string) bool {
	for _, pattern := range serialPatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

func matchesExcludePattern(name string) bool {
	for _, pattern := range excludePatterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// ListDevices returns attached USB devices that expose at least one tty,
// with the ttys of a multi-port device grouped together. It only reads
// sysfs and never needs device permissions.
func ListDevices() ([]Device, error) {
	details, err := enumeratePorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate ports: %w", err)
	}

	byKey := make(map[string]*Device)
	var order []string
	for _, pd := range details {
		if pd == nil || !pd.IsUSB {
			continue
		}
		vendor, err1 := strconv.ParseUint(pd.VID, 16, 16)
		product, err2 := strconv.ParseUint(pd.PID, 16, 16)
		if err1 != nil || err2 != nil {
			continue
		}

		info := readSysfsPort(pd.Name)
		serial := pd.SerialNumber
		if serial == "" {
			serial = info.serial
		}

		// Ports of one device share bus and device number
		key := info.bus + "/" + info.devnum
		if info.bus == "" || info.devnum == "" {
			key = deviceIdentity(uint16(vendor), uint16(product), serial)
		}

		dev, ok := byKey[key]
		if !ok {
			dev = &Device{
				ID:           deviceIdentity(uint16(vendor), uint16(product), serial),
				VendorID:     uint16(vendor),
				ProductID:    uint16(product),
				SerialNumber: serial,
				Manufacturer: info.manufacturer,
				Product:      firstNonEmpty(info.product, pd.Product),
				BusNumber:    info.bus,
				DeviceNumber: info.devnum,
			}
			byKey[key] = dev
			order = append(order, key)
		}
		dev.Ports = append(dev.Ports, DevicePort{
			Path:          pd.Name,
			Interface:     info.iface,
			InterfaceName: info.ifaceName,
			Driver:        info.driver,
		})
	}

	devices := make([]Device, 0, len(order))
	for _, key := range order {
		dev := byKey[key]
		sort.SliceStable(dev.Ports, func(i, j int) bool {
			a, b := dev.Ports[i], dev.Ports[j]
			if a.Interface != b.Interface {
				return a.Interface < b.Interface
			}
			return a.Path < b.Path
		})
		devices = append(devices, *dev)
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Ports[0].Path < devices[j].Ports[0].Path
	})
	return devices, nil
}

// GetDeviceInfo returns the attached device whose identity, vendor/product
// pair or tty path equals key
func GetDeviceInfo(key string) (*Device, error) {
	devices, err := ListDevices()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		d := &devices[i]
		if d.ID == key || d.USBID().String() == key {
			return d, nil
		}
		for _, p := range d.Ports {
			if p.Path == key {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDevice, key)
}

type sysfsPort struct {
	iface        int
	ifaceName    string
	driver       string
	serial       string
	manufacturer string
	product      string
	bus          string
	devnum       string
}

// readSysfsPort follows /sys/class/tty/<name>/device up to the USB
// interface and device directories
func readSysfsPort(path string) sysfsPort {
	info := sysfsPort{iface: -1}

	name := filepath.Base(path)
	resolved, err := filepath.EvalSymlinks(filepath.Join(sysfsRoot, "class", "tty", name, "device"))
	if err != nil {
		return info
	}

	// cdc_acm links to the interface itself, usb-serial drivers to a child
	interfacePath := resolved
	if _, err := os.Stat(filepath.Join(resolved, "bInterfaceNumber")); err != nil {
		interfacePath = filepath.Dir(resolved)
	}

	if n, err := strconv.ParseInt(readSysfsFile(filepath.Join(interfacePath, "bInterfaceNumber")), 16, 32); err == nil {
		info.iface = int(n)
	}
	info.ifaceName = readSysfsFile(filepath.Join(interfacePath, "interface"))
	if driver, err := filepath.EvalSymlinks(filepath.Join(interfacePath, "driver")); err == nil {
		info.driver = filepath.Base(driver)
	}

	usbDevicePath := filepath.Dir(interfacePath)
	info.serial = readSysfsFile(filepath.Join(usbDevicePath, "serial"))
	info.manufacturer = readSysfsFile(filepath.Join(usbDevicePath, "manufacturer"))
	info.product = readSysfsFile(filepath.Join(usbDevicePath, "product"))
	info.bus = readSysfsFile(filepath.Join(usbDevicePath, "busnum"))
	info.devnum = readSysfsFile(filepath.Join(usbDevicePath, "devnum"))
	return info
}

// readSysfsFile returns the trimmed content of a sysfs attribute, or ""
func readSysfsFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package irbridge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/gousb"
)

// maxStringIndex bounds the string descriptor scan
const maxStringIndex = 16

// Descriptors is what the port heuristic needs from a device's USB
// descriptors
type Descriptors struct {
	Interfaces    []string       // serial interface strings in port order, "" when absent
	Strings       map[int]string // non-empty string descriptors by index
	DeviceStrings int            // manufacturer, product and serial strings present
}

// readUSBDescriptors opens d through libusb just long enough to read its
// string descriptors. No interface is claimed.
func readUSBDescriptors(d Device) (desc Descriptors, err error) {
	// gousb panics when libusb cannot be initialised
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDescriptorsNotRead, r)
		}
	}()

	bus, _ := strconv.Atoi(d.BusNumber)
	addr, _ := strconv.Atoi(d.DeviceNumber)

	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(dd *gousb.DeviceDesc) bool {
		if uint16(dd.Vendor) != d.VendorID || uint16(dd.Product) != d.ProductID {
			return false
		}
		if bus == 0 || addr == 0 {
			return true
		}
		return dd.Bus == bus && dd.Address == addr
	})
	for i := 1; i < len(devs); i++ {
		devs[i].Close()
	}
	if len(devs) == 0 {
		if err != nil {
			return Descriptors{}, fmt.Errorf("%w: %v", ErrDescriptorsNotRead, err)
		}
		return Descriptors{}, fmt.Errorf("%w: %s not found", ErrDescriptorsNotRead, d.ID)
	}
	dev := devs[0]
	defer dev.Close()

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		cfgNum = firstConfig(dev.Desc.Configs)
	}
	cfg, ok := dev.Desc.Configs[cfgNum]
	if !ok {
		return Descriptors{}, fmt.Errorf("%w: no configuration %d", ErrDescriptorsNotRead, cfgNum)
	}

	desc.Strings = make(map[int]string)
	for _, intf := range serialInterfaces(cfg) {
		name, _ := dev.InterfaceDescription(cfgNum, intf.Number, intf.AltSettings[0].Alternate)
		desc.Interfaces = append(desc.Interfaces, name)
	}

	for _, s := range []func() (string, error){dev.Manufacturer, dev.Product, dev.SerialNumber} {
		if v, err := s(); err == nil && v != "" {
			desc.DeviceStrings++
		}
	}
	for i := 1; i <= maxStringIndex; i++ {
		if s, err := dev.GetStringDescriptor(i); err == nil && s != "" {
			desc.Strings[i] = s
		}
	}
	return desc, nil
}

func firstConfig(configs map[int]gousb.ConfigDesc) int {
	first := -1
	for n := range configs {
		if first == -1 || n < first {
			first = n
		}
	}
	return first
}

// serialInterfaces returns the interfaces backing a tty each, ordered by
// interface number. Communication and vendor specific interfaces carry one
// port each; data interfaces are used when neither is present.
func serialInterfaces(cfg gousb.ConfigDesc) []gousb.InterfaceDesc {
	var primary, data []gousb.InterfaceDesc
	for _, intf := range cfg.Interfaces {
		if len(intf.AltSettings) == 0 {
			continue
		}
		switch intf.AltSettings[0].Class {
		case gousb.ClassComm, gousb.ClassVendorSpec:
			primary = append(primary, intf)
		case gousb.ClassData:
			data = append(data, intf)
		}
	}
	if len(primary) == 0 {
		primary = data
	}
	sort.Slice(primary, func(i, j int) bool { return primary[i].Number < primary[j].Number })
	return primary
}

// isIRLabel reports whether a descriptor string names an infrared port:
// it mentions IrDA or infrared, or has "IR" as a separate word
func isIRLabel(s string) bool {
	upper := strings.ToUpper(s)
	if strings.Contains(upper, "IRDA") || strings.Contains(upper, "INFRARED") {
		return true
	}
	tokens := strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if tok == "IR" {
			return true
		}
	}
	return false
}

// portChoice records how a port index was picked
type portChoice struct {
	index  int
	source string
}

// resolvePortIndex picks the port of d to open. A persisted selection for
// this device wins, then an interface named like an IR port, then a string
// descriptor named like one, whose index is mapped to a port by skipping
// the device level strings. Port 0 otherwise.
func resolvePortIndex(d Device, sel *USBSelection, desc *Descriptors) portChoice {
	n := len(d.Ports)
	if sel != nil && sel.DeviceID == d.ID && sel.Port < n {
		return portChoice{index: sel.Port, source: "selection"}
	}

	names := make([]string, n)
	for i, p := range d.Ports {
		names[i] = p.InterfaceName
	}
	if desc != nil {
		for i, name := range desc.Interfaces {
			if i < n && name != "" {
				names[i] = name
			}
		}
	}
	for i, name := range names {
		if isIRLabel(name) {
			return portChoice{index: i, source: "interface"}
		}
	}

	if desc != nil {
		indices := make([]int, 0, len(desc.Strings))
		for idx := range desc.Strings {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			if !isIRLabel(desc.Strings[idx]) {
				continue
			}
			if port := idx - desc.DeviceStrings - 1; port >= 0 && port < n {
				return portChoice{index: port, source: "string-index"}
			}
		}
	}

	return portChoice{index: 0, source: "default"}
}

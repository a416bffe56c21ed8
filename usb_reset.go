package irbridge

import (
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// reenumerationDelay is how long a reset device takes to come back
var reenumerationDelay = 2 * time.Second

// ResetUSBDevice performs a USB-level reset of the device
// This can recover an adapter that stopped answering
//
// Requirements:
// - usbreset utility must be installed (from usbutils package)
// - Requires appropriate permissions (typically root/sudo)
//
// Returns:
// - nil if reset successful
// - ErrUSBResetNotAvailable if usbreset utility not found
// - ErrUSBInfoNotAvailable if bus or device number are unknown
// - error if reset fails
func ResetUSBDevice(d Device) error {
	bus, err1 := strconv.Atoi(d.BusNumber)
	dev, err2 := strconv.Atoi(d.DeviceNumber)
	if err1 != nil || err2 != nil {
		return ErrUSBInfoNotAvailable
	}

	if !IsUSBResetAvailable() {
		return ErrUSBResetNotAvailable
	}

	// usbreset expects zero-padded 3-digit bus and device numbers (BBB/DDD)
	usbPath := fmt.Sprintf("%03d/%03d", bus, dev)

	cmd := exec.Command("usbreset", usbPath)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("usbreset failed: %w (output: %s)", err, string(output))
	}

	time.Sleep(reenumerationDelay)
	return nil
}

// ResetUSBDeviceByKey resets the attached device matching key, which may
// be a device identity, a vendor:product pair or a tty path
func ResetUSBDeviceByKey(key string) error {
	d, err := GetDeviceInfo(key)
	if err != nil {
		return err
	}
	return ResetUSBDevice(*d)
}

// IsUSBResetAvailable checks if usbreset utility is available in PATH
func IsUSBResetAvailable() bool {
	_, err := exec.LookPath("usbreset")
	return err == nil
}

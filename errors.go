package irbridge

import "errors"

// Predefined error types for robust error handling
var (
	ErrNoDevice          = errors.New("no serial-capable USB device found")
	ErrPermissionPending = errors.New("USB permission not granted yet")
	ErrPortClosed        = errors.New("serial port is closed")
	ErrInvalidBaudRate   = errors.New("invalid baud rate")
	ErrInvalidConfig     = errors.New("invalid bridge configuration")
	ErrWriteTimeout      = errors.New("write operation timed out")

	// Persisted configuration errors
	ErrUnknownKind         = errors.New("unknown transport kind")
	ErrInvalidSelectionKey = errors.New("invalid device port selection key")

	// USB-related errors
	ErrUSBInfoNotAvailable  = errors.New("USB device information not available")
	ErrUSBResetNotAvailable = errors.New("usbreset utility not available")
	ErrDescriptorsNotRead   = errors.New("USB descriptors could not be read")
)

// Package irbridge provides a pluggable duplex byte pipe between an
// emulator and an external infrared peripheral.
//
// The caller sees one synchronous surface, Bridge, and never learns which
// transport carries the bytes. The transport is chosen from a persisted
// configuration record and can be switched at runtime:
//
//   - usb_serial: the first attached USB serial adapter (FTDI, CP210x,
//     PL2303, CH34x or any CDC-ACM device)
//   - tcp: a TCP peer, either accepted (server role) or dialed (client role)
//   - none, direct_storage: a null channel that never opens
//
// # Basic Usage
//
//	store := irbridge.NewMemoryStore()
//	store.Set(irbridge.KeyTransportKind, "tcp")
//	store.Set(irbridge.KeyTCPServerPort, 8081)
//
//	bridge, err := irbridge.New(store,
//	    irbridge.WithLogger(logger),
//	    irbridge.WithStatusObserver(irbridge.StatusObserverFunc(func(ok bool, label string) {
//	        fmt.Printf("%s available=%v\n", label, ok)
//	    })),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer bridge.Dispose()
//
//	bridge.Open() // starts listening; poll IsOpen
//	n := bridge.Write([]byte{0x01, 0x02, 0x03})
//	buf := make([]byte, 16)
//	n = bridge.Read(buf)
//
// None of the calls block beyond the configured timeouts. Write returns -1
// when the channel is closed or failed and 0 when the bridge is disabled;
// Read returns 0 when nothing was received.
//
// # Configuration Keys
//
//	ir.transport_kind              none | usb_serial | tcp | direct_storage
//	ir.selected_device_port_key    "<device-identity>:<port-index>"
//	tcp.is_server                  default true
//	tcp.server_port                default 8081
//	tcp.client_host                default 127.0.0.1
//	tcp.client_port                default 8081
//
// Call Bridge.Reevaluate after changing them; Open does so implicitly.
//
// # USB Permissions
//
// On Linux a serial adapter is usable once the tty is readable and
// writable by the process. When it is not, Open returns false and the
// SystemHost waits in the background for the permissions to change
// (dialout group membership or a udev rule). A grant reopens the channel
// automatically.
//
// # Device Discovery
//
//	devices, err := irbridge.ListDevices()
//	for _, d := range devices {
//	    fmt.Printf("%s %s %v\n", d.ID, d.Product, d.PortPaths())
//	}
//
// A hung adapter can be reset with ResetUSBDevice, which requires the
// usbreset utility from usbutils and root privileges.
package irbridge

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/tui/styles"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List USB serial adapters",
	Long: `List attached USB devices that the serial transport can use.

A device is listed when its vendor is handled by a known serial driver
(FTDI, Silicon Labs, Prolific, WCH), when its vendor/product pair is in the
built-in or configured (usb.extra_ids) tables, or when it is a CDC-ACM
device. The first listed device is the one the bridge opens.

With --all, every USB device exposing a tty is shown along with the
remaining non-USB serial ports.`,
	Run: func(cmd *cobra.Command, args []string) {
		showAll, _ := cmd.Flags().GetBool("all")
		tableFormat, _ := cmd.Flags().GetBool("table")

		var extra []irbridge.DeviceID
		if store, err := openStore(); err == nil {
			extra, err = extraDeviceIDs(store)
			store.Close()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		devices, err := irbridge.ListDevices()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
			os.Exit(1)
		}

		var listed []irbridge.Device
		for _, d := range devices {
			if showAll || irbridge.IsSerialCapable(d, extra...) {
				listed = append(listed, d)
			}
		}

		var others []string
		if showAll {
			others = otherPorts(devices)
		}

		if len(listed) == 0 && len(others) == 0 {
			fmt.Println("No serial adapters found")
			return
		}

		if tableFormat {
			renderTable(listed, extra)
		} else {
			renderSimple(listed)
		}
		for _, p := range others {
			fmt.Println(p)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("all", "a", false, "Include devices no serial signature matches and non-USB ports")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// otherPorts returns the tty paths not owned by any USB device
func otherPorts(devices []irbridge.Device) []string {
	ports, err := irbridge.ListPorts()
	if err != nil {
		return nil
	}
	owned := make(map[string]bool)
	for _, d := range devices {
		for _, p := range d.PortPaths() {
			owned[p] = true
		}
	}
	var others []string
	for _, p := range ports {
		if !owned[p] {
			others = append(others, p)
		}
	}
	return others
}

const (
	columnKeyDevice  = "device"
	columnKeyUSB     = "usb"
	columnKeyProduct = "product"
	columnKeyDriver  = "driver"
	columnKeyPorts   = "ports"
	columnKeySerial  = "serial"
)

// renderTable renders the devices in a static bordered table
func renderTable(devices []irbridge.Device, extra []irbridge.DeviceID) {
	fmt.Printf("Found %d device(s):\n\n", len(devices))

	columns := []table.Column{
		table.NewColumn(columnKeyDevice, "#", 3),
		table.NewColumn(columnKeyUSB, "USB ID", 11),
		table.NewColumn(columnKeyProduct, "Product", 28),
		table.NewColumn(columnKeyDriver, "Driver", 10),
		table.NewColumn(columnKeyPorts, "Ports", 26),
		table.NewColumn(columnKeySerial, "Serial", 14),
	}

	rows := make([]table.Row, 0, len(devices))
	for i, d := range devices {
		product := strings.TrimSpace(d.Manufacturer + " " + d.Product)
		row := table.NewRow(table.RowData{
			columnKeyDevice:  strconv.Itoa(i),
			columnKeyUSB:     d.USBID().String(),
			columnKeyProduct: product,
			columnKeyDriver:  irbridge.DriverName(d),
			columnKeyPorts:   strings.Join(d.PortPaths(), ", "),
			columnKeySerial:  d.SerialNumber,
		})
		if !irbridge.IsSerialCapable(d, extra...) {
			row = row.WithStyle(lipgloss.NewStyle().Foreground(styles.Overlay0))
		}
		rows = append(rows, row)
	}

	t := table.New(columns).
		WithRows(rows).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().Foreground(styles.Text).BorderForeground(styles.Surface2))
	fmt.Println(t.View())
}

// renderSimple prints one line per device: identity, usb id and ports
func renderSimple(devices []irbridge.Device) {
	for _, d := range devices {
		fmt.Printf("%s\t%s\t%s\n", d.ID, d.USBID(), strings.Join(d.PortPaths(), " "))
	}
}

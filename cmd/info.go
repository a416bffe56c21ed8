/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <device>",
	Short: "Display detailed information about a USB serial device",
	Long: `Display detailed information about a USB serial device.

The device is given as its identity (as printed by 'list'), its
vendor:product pair, or one of its tty paths.

Examples:
  irbridge info 0403-6001-FT123456
  irbridge info 066f:4200
  irbridge info /dev/ttyUSB0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		d, err := irbridge.GetDeviceInfo(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting device info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Device Information: %s\n\n", d.ID)
		fmt.Printf("  USB ID:       %s\n", d.USBID())
		if d.Manufacturer != "" {
			fmt.Printf("  Manufacturer: %s\n", d.Manufacturer)
		}
		if d.Product != "" {
			fmt.Printf("  Product:      %s\n", d.Product)
		}
		if d.SerialNumber != "" {
			fmt.Printf("  Serial:       %s\n", d.SerialNumber)
		}
		if d.BusNumber != "" {
			fmt.Printf("  Bus:          %s\n", d.BusNumber)
		}
		if d.DeviceNumber != "" {
			fmt.Printf("  Device:       %s\n", d.DeviceNumber)
		}
		if driver := irbridge.DriverName(*d); driver != "" {
			fmt.Printf("  Driver:       %s\n", driver)
		}
		fmt.Printf("  Serial capable: %t\n", irbridge.IsSerialCapable(*d))

		fmt.Println("\nPorts:")
		for i, p := range d.Ports {
			line := fmt.Sprintf("  [%d] %s", i, p.Path)
			if p.Interface >= 0 {
				line += fmt.Sprintf("  interface %d", p.Interface)
			}
			if p.InterfaceName != "" {
				line += fmt.Sprintf("  %q", p.InterfaceName)
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
)

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <device>",
	Short: "Reset a USB serial device",
	Long: `Perform a USB-level reset on a serial device. This can recover IR
dongles that are hung or unresponsive without physically unplugging them.

The device is given as its identity, its vendor:product pair or one of its
tty paths. It re-enumerates after the reset, which may change the port
path; the bridge finds it again on the next open.

Requirements:
- usbreset utility must be installed (from usbutils package)
- Root/sudo permissions required for USB operations

Examples:
  sudo irbridge reset /dev/ttyUSB0
  sudo irbridge reset 066f:4200`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !irbridge.IsUSBResetAvailable() {
			fmt.Fprintln(os.Stderr, "Error: usbreset utility not available")
			fmt.Fprintln(os.Stderr, "Install with: sudo apt-get install usbutils")
			os.Exit(1)
		}

		fmt.Printf("Resetting USB device: %s\n", args[0])
		if err := irbridge.ResetUSBDeviceByKey(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if errors.Is(err, irbridge.ErrUSBInfoNotAvailable) {
				fmt.Fprintln(os.Stderr, "Bus and device numbers are not available for this device")
			}
			os.Exit(1)
		}

		fmt.Println("USB device reset successfully")
		fmt.Println("\nUse 'irbridge list --table' to see updated device list")
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

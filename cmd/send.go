/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/tui/components"
	"github.com/allbin/go-irbridge/internal/tui/styles"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data]",
	Short: "Send bytes through the configured transport",
	Long: `Open the configured transport, send data once and close it.

Data can be provided as:
- Command line argument: irbridge send "Hello"
- From stdin (pipe): echo "test" | irbridge send
- Interactive mode: irbridge send (prompts for input)

Example usage:
  irbridge send "c0 ff 00 c1" --hex
  irbridge send "AT" --newline
  irbridge send "hello" --wait 10s   # wait for a TCP peer`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		wait, _ := cmd.Flags().GetDuration("wait")

		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				text = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				text = strings.TrimRight(string(stdinData), "\r\n")
			}
		}

		mode := components.SendingModeASCII
		if hexMode {
			mode = components.SendingModeHex
		}
		data, err := components.ParsePayload(text, mode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid data: %v\n", err)
			os.Exit(1)
		}
		if addNewline && !hexMode {
			data = append(data, '\n')
		}

		if err := sendData(data, wait); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., 'c0ff00c1')")
	sendCmd.Flags().DurationP("wait", "w", 5*time.Second, "How long to wait for the transport to open")
}

func promptForData() string {
	fmt.Print(styles.TitleStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func sendData(data []byte, wait time.Duration) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	bridge, err := newBridge(store)
	if err != nil {
		return err
	}
	defer bridge.Dispose()

	fmt.Printf("%s Opening %s...\n", styles.InfoStyle.Render("⚡"), bridge.Status().Label)
	if !waitOpen(bridge, wait) {
		status := bridge.Status()
		if status.Active == irbridge.KindNone {
			return fmt.Errorf("%s no transport available (%s selected)", styles.ErrorStyle.Render("✗"), status.Label)
		}
		return fmt.Errorf("%s %s did not open within %v", styles.ErrorStyle.Render("✗"), status.Label, wait)
	}
	fmt.Printf("%s Connected successfully\n", styles.SuccessStyle.Render("✓"))

	n := bridge.Write(data)
	if n < 0 {
		return fmt.Errorf("%s failed to send data", styles.ErrorStyle.Render("✗"))
	}
	fmt.Printf("%s Successfully sent %d of %d bytes\n", styles.SuccessStyle.Render("✓"), n, len(data))
	return nil
}

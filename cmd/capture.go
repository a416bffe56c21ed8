/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <output-file>",
	Short: "Capture bridge traffic to a file",
	Long: `Capture incoming bytes from the configured transport to a file.

The bridge is polled the way the emulation core polls it, and the
transport is reopened whenever it drops (a TCP peer leaving, a dongle
being replugged). Runs until interrupted (Ctrl+C).

The output file is opened in append mode, allowing you to resume captures
without overwriting existing data.

Example usage:
  irbridge capture ir.bin
  irbridge capture ir.bin --console`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		bufferSize, _ := cmd.Flags().GetInt("buffer")
		showConsole, _ := cmd.Flags().GetBool("console")
		interval, _ := cmd.Flags().GetDuration("interval")

		store := mustOpenStore()
		defer store.Close()

		bridge, err := newBridge(store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer bridge.Dispose()

		if err := store.Watch(bridge.Reevaluate); err != nil {
			logger.Warn().Err(err).Msg("Config changes will not be picked up")
		}

		if err := runCapture(bridge, args[0], bufferSize, interval, showConsole); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("buffer", 4096, "Read buffer size")
	captureCmd.Flags().Duration("interval", 16*time.Millisecond, "Poll interval")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

// reopenInterval is how often a dropped transport is reopened
const reopenInterval = time.Second

func runCapture(bridge *irbridge.Bridge, outputPath string, bufferSize int, interval time.Duration, showConsole bool) error {
	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bridge.Open()
	fmt.Fprintf(os.Stderr, "Capturing %s to %s\n", bridge.Status().Label, outputPath)
	fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

	buffer := make([]byte, bufferSize)
	bytesWritten := int64(0)
	startTime := time.Now()
	lastOpen := startTime

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			duration := time.Since(startTime)
			stats := bridge.Status().Stats
			fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v (%d dropped)\n",
				bytesWritten, duration.Round(time.Millisecond), stats.BytesDropped)
			return nil
		case now := <-ticker.C:
			if !bridge.IsOpen() && now.Sub(lastOpen) >= reopenInterval {
				bridge.Open()
				lastOpen = now
			}
			for {
				n := bridge.Read(buffer)
				if n <= 0 {
					break
				}
				written, err := file.Write(buffer[:n])
				if err != nil {
					return fmt.Errorf("write error: %w", err)
				}
				bytesWritten += int64(written)

				if showConsole {
					os.Stdout.Write(buffer[:n])
				}
			}
		}
	}
}

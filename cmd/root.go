/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/settings"
)

// keyExtraIDs lists additional "vvvv:pppp" ids treated as serial adapters
const keyExtraIDs = "usb.extra_ids"

var (
	cfgFile  string
	logLevel string
	baudRate int

	logger = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "irbridge",
	Short: "Bridge an emulated IR port to USB serial or TCP",
	Long: `irbridge moves raw bytes between an emulated infrared port and a real
transport: a USB serial IR dongle, a TCP peer, or nothing at all.

The transport is chosen by the persisted configuration, which the
'config' command edits and the 'monitor' command watches for changes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			Level(level).
			With().
			Timestamp().
			Logger()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/irbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Serial baud rate")
}

// openStore opens the persisted configuration
func openStore() (*settings.ViperStore, error) {
	path := cfgFile
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return settings.Open(path, logger)
}

// extraDeviceIDs parses the usb.extra_ids list
func extraDeviceIDs(store *settings.ViperStore) ([]irbridge.DeviceID, error) {
	var ids []irbridge.DeviceID
	for _, s := range store.GetStringSlice(keyExtraIDs) {
		id, err := irbridge.ParseDeviceID(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyExtraIDs, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// newBridge creates a bridge over store with the CLI-wide options
func newBridge(store *settings.ViperStore, opts ...irbridge.Option) (*irbridge.Bridge, error) {
	ids, err := extraDeviceIDs(store)
	if err != nil {
		return nil, err
	}
	base := []irbridge.Option{
		irbridge.WithLogger(logger),
		irbridge.WithBaudRate(baudRate),
		irbridge.WithExtraDeviceIDs(ids...),
	}
	return irbridge.New(store, append(base, opts...)...)
}

// waitOpen polls the bridge until it is open or the timeout passes
func waitOpen(b *irbridge.Bridge, timeout time.Duration) bool {
	if !b.Open() && b.Status().Active == irbridge.KindNone {
		return false
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for !b.IsOpen() {
		if time.Now().After(deadline) {
			return false
		}
		<-ticker.C
		if b.Status().Active == irbridge.KindUSBSerial && !b.IsOpen() {
			// a permission grant may have arrived
			b.Open()
		}
	}
	return true
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/settings"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the transport configuration",
	Long: `Show or edit the persisted transport configuration.

Changes are written to the config file immediately. A running 'monitor'
picks them up and swaps the transport without restarting.

Examples:
  irbridge config show
  irbridge config kind tcp
  irbridge config tcp --server=false --host 192.168.1.20 --port 8081
  irbridge config usb-port 066f-4200 1`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := mustOpenStore()
		defer store.Close()

		tc, err := irbridge.LoadTransportConfig(store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		fmt.Printf("Config file: %s\n\n", store.Path())
		fmt.Printf("  Transport:  %s (%s)\n", tc.Kind, tc.Kind.Label())
		if tc.TCP.IsServer {
			fmt.Printf("  TCP role:   server on %s\n", tc.TCP.ServerAddress())
		} else {
			fmt.Printf("  TCP role:   client to %s\n", tc.TCP.ClientAddress())
		}
		if tc.USB != nil {
			fmt.Printf("  USB port:   %s\n", tc.USB)
		} else {
			fmt.Println("  USB port:   auto")
		}

		all := store.AllSettings()
		if len(all) == 0 {
			return
		}
		fmt.Println("\nStored keys:")
		flat := flatten("", all)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %v\n", k, flat[k])
		}
	},
}

var configKindCmd = &cobra.Command{
	Use:   "kind <none|usb_serial|tcp|direct_storage>",
	Short: "Select the transport kind",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := irbridge.ParseKind(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		store := mustOpenStore()
		defer store.Close()
		if err := store.Set(irbridge.KeyTransportKind, kind.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Transport set to %s\n", kind.Label())
	},
}

var configTCPCmd = &cobra.Command{
	Use:   "tcp",
	Short: "Set the TCP role and addresses",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := mustOpenStore()
		defer store.Close()

		var updates []struct {
			key   string
			value any
		}
		add := func(key string, value any) {
			updates = append(updates, struct {
				key   string
				value any
			}{key, value})
		}

		if cmd.Flags().Changed("server") {
			v, _ := cmd.Flags().GetBool("server")
			add(irbridge.KeyTCPIsServer, v)
		}
		if cmd.Flags().Changed("listen-port") {
			v, _ := cmd.Flags().GetInt("listen-port")
			add(irbridge.KeyTCPServerPort, v)
		}
		if cmd.Flags().Changed("host") {
			v, _ := cmd.Flags().GetString("host")
			add(irbridge.KeyTCPClientHost, v)
		}
		if cmd.Flags().Changed("port") {
			v, _ := cmd.Flags().GetInt("port")
			add(irbridge.KeyTCPClientPort, v)
		}
		if len(updates) == 0 {
			fmt.Fprintln(os.Stderr, "Error: nothing to change, see --help")
			os.Exit(1)
		}

		for _, u := range updates {
			if p, ok := u.value.(int); ok && (p <= 0 || p > 65535) {
				fmt.Fprintf(os.Stderr, "Error: %s: invalid port %d\n", u.key, p)
				os.Exit(1)
			}
			if err := store.Set(u.key, u.value); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		tcp := irbridge.LoadTCPConfig(store)
		if tcp.IsServer {
			fmt.Printf("TCP server on %s\n", tcp.ServerAddress())
		} else {
			fmt.Printf("TCP client to %s\n", tcp.ClientAddress())
		}
	},
}

var configUSBPortCmd = &cobra.Command{
	Use:   "usb-port <device> <port-index>",
	Short: "Pin the port used on a multi-port device",
	Long: `Pin the port used on a multi-port device.

Without a selection the bridge picks the port whose interface looks like
an IR interface, falling back to port 0. Use 'irbridge info' to see the
ports of a device. Pass --clear to go back to automatic selection.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if unset, _ := cmd.Flags().GetBool("clear"); unset {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	Run: func(cmd *cobra.Command, args []string) {
		store := mustOpenStore()
		defer store.Close()

		if unset, _ := cmd.Flags().GetBool("clear"); unset {
			if err := store.Set(irbridge.KeySelectedDevicePortKey, ""); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("USB port selection cleared")
			return
		}

		id := args[0]
		if d, err := irbridge.GetDeviceInfo(id); err == nil {
			id = d.ID
		}
		port, err := strconv.Atoi(args[1])
		if err != nil || port < 0 {
			fmt.Fprintf(os.Stderr, "Error: invalid port index %q\n", args[1])
			os.Exit(1)
		}

		sel := irbridge.USBSelection{DeviceID: id, Port: port}
		if err := store.Set(irbridge.KeySelectedDevicePortKey, sel.String()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("USB port set to %s\n", sel)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configKindCmd, configTCPCmd, configUSBPortCmd)

	configTCPCmd.Flags().Bool("server", true, "Listen for a peer instead of dialing one")
	configTCPCmd.Flags().Int("listen-port", irbridge.DefaultTCPPort, "Port to listen on in the server role")
	configTCPCmd.Flags().String("host", irbridge.DefaultTCPClientHost, "Host to dial in the client role")
	configTCPCmd.Flags().Int("port", irbridge.DefaultTCPPort, "Port to dial in the client role")

	configUSBPortCmd.Flags().Bool("clear", false, "Remove the selection")
}

func mustOpenStore() *settings.ViperStore {
	store, err := openStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening config: %v\n", err)
		os.Exit(1)
	}
	return store
}

// flatten turns viper's nested settings into dotted keys
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

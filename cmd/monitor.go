/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/go-irbridge"
	"github.com/allbin/go-irbridge/internal/tui/models"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive view of the bridge traffic",
	Long: `Open the configured transport and show the traffic in a terminal UI.

The monitor stands in for the emulation core: it polls the bridge once per
frame, shows every received byte and writes what you type. Edits to the
config file, made with 'irbridge config' or by hand, switch the transport
while the monitor runs.

Keys:
  i       insert mode (type hex or ASCII, Enter sends, Tab switches)
  Esc     back to normal mode
  o / x   open / close the transport
  h / a   toggle hex / ASCII columns
  c       clear the log
  ?       help
  q       quit`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		noOpen, _ := cmd.Flags().GetBool("no-open")

		store := mustOpenStore()
		defer store.Close()

		notices := make(chan models.TransportChangedMsg, 8)
		observer := irbridge.StatusObserverFunc(func(available bool, label string) {
			select {
			case notices <- models.TransportChangedMsg{Available: available, Label: label}:
			default:
			}
		})

		bridge, err := newBridge(store, irbridge.WithStatusObserver(observer))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer bridge.Dispose()

		if err := store.Watch(func() {
			bridge.Reevaluate()
			if !noOpen {
				bridge.Open()
			}
		}); err != nil {
			logger.Warn().Err(err).Msg("Config changes will not be picked up")
		}

		if !noOpen {
			bridge.Open()
		} else {
			bridge.Reevaluate()
		}

		m := models.NewMonitorModel(bridge)
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case n := <-notices:
					p.Send(n)
				case <-done:
					return
				}
			}
		}()

		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running monitor: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Bool("no-open", false, "Start with the transport closed")
}

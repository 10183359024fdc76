package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/spacenav"
	"github.com/bnema/spacenav/internal/config"
	"github.com/bnema/spacenav/internal/logger"
	"github.com/bnema/spacenav/internal/ui"
)

var monitorTUI bool

// monitorCmd streams decoded device events
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Stream motion and button events from the daemon",
	Long: `Monitor connects to spacenavd and prints every motion and button
event as it arrives. With --tui it renders a live dashboard with axis
gauges and button state instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := spacenav.Open()
		if err != nil {
			return fmt.Errorf("failed to connect to spacenavd: %w", err)
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logger.Errorf("Failed to close connection: %v", err)
			}
		}()

		if sens := config.Get().Daemon.Sensitivity; sens > 0 {
			if _, err := conn.Sensitivity(sens); err != nil {
				logger.Warnf("Failed to apply configured sensitivity: %v", err)
			}
		}

		if monitorTUI {
			return ui.Run(conn)
		}

		logger.Infof("Connected to spacenavd (fd %d), waiting for events", conn.Fd())
		for {
			ev, err := conn.Wait()
			if err != nil {
				return fmt.Errorf("event stream ended: %w", err)
			}
			fmt.Println(ev)
		}
	},
}

func init() {
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", false, "render a live dashboard instead of plain output")
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/spacenav"
	"github.com/bnema/spacenav/internal/logger"
)

// flushCmd discards pending events
var flushCmd = &cobra.Command{
	Use:   "flush [any|motion|button]",
	Short: "Discard pending events of the given type",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filterName := ""
		if len(args) == 1 {
			filterName = args[0]
		}
		filter, err := spacenav.ParseEventType(filterName)
		if err != nil {
			return err
		}

		conn, err := spacenav.Open()
		if err != nil {
			return fmt.Errorf("failed to connect to spacenavd: %w", err)
		}
		defer func() {
			if err := conn.Close(); err != nil {
				logger.Errorf("Failed to close connection: %v", err)
			}
		}()

		n, err := conn.Flush(filter)
		if err != nil {
			return fmt.Errorf("failed to flush events: %w", err)
		}

		fmt.Printf("Discarded %d pending %s event(s)\n", n, filter)
		return nil
	},
}

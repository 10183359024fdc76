package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bnema/spacenav"
	"github.com/bnema/spacenav/internal/logger"
)

// sensitivityCmd sets the daemon-side sensitivity coefficient
var sensitivityCmd = &cobra.Command{
	Use:   "sensitivity <value>",
	Short: "Set the daemon's sensitivity coefficient",
	Long: `Sensitivity scales all axis readings daemon-side before they reach
any client. 1.0 is the device default; values below 1 dampen, above 1
amplify.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid sensitivity %q: %w", args[0], err)
		}
		if value <= 0 {
			return fmt.Errorf("sensitivity must be positive, got %v", value)
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

		applied, err := conn.Sensitivity(value)
		if err != nil {
			return fmt.Errorf("failed to set sensitivity: %w", err)
		}

		fmt.Printf("Sensitivity set to %g\n", applied)
		return nil
	},
}

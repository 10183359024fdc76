// Package cmd implements the spacenav command line interface.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bnema/spacenav/internal/config"
	"github.com/bnema/spacenav/internal/logger"
)

var (
	// Version is set during build
	Version = "0.1.0-dev"

	configPath string

	rootCmd = &cobra.Command{
		Use:   "spacenav",
		Short: "Spacenav - 6-DoF input device tools",
		Long: `Spacenav talks to the spacenavd daemon and exposes the motion and
button events of 6-DoF input devices (SpaceMouse and similar). It can
stream events to the terminal, drive a virtual mouse through uinput,
and tune the daemon's sensitivity.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetConfigPath(configPath)
			}
			if err := config.Init(); err != nil {
				return err
			}
			if lvl := config.Get().Logging.LogLevel; lvl != "" {
				logger.SetLevel(lvl)
			}
			return nil
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/spacenav/spacenav.toml)")

	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(flushCmd)
	rootCmd.AddCommand(sensitivityCmd)
	rootCmd.AddCommand(bridgeCmd)
	rootCmd.AddCommand(setupCmd)
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/bnema/spacenav/internal/config"
	"github.com/bnema/spacenav/internal/logger"
)

// setupCmd interactively writes the config file
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively configure spacenav",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		socketPath := cfg.Daemon.SocketPath
		speed := fmt.Sprintf("%g", cfg.Bridge.Speed)
		logLevel := cfg.Logging.LogLevel
		if logLevel == "" {
			logLevel = "info"
		}

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Daemon socket path").
					Description("Where spacenavd listens for clients").
					Value(&socketPath),
				huh.NewInput().
					Title("Bridge pointer speed").
					Description("Pointer pixels per axis count (e.g. 0.05)").
					Value(&speed).
					Validate(func(s string) error {
						v, err := strconv.ParseFloat(s, 64)
						if err != nil || v <= 0 {
							return fmt.Errorf("enter a positive number")
						}
						return nil
					}),
				huh.NewSelect[string]().
					Title("Log level").
					Options(
						huh.NewOption("debug", "debug"),
						huh.NewOption("info", "info"),
						huh.NewOption("warn", "warn"),
						huh.NewOption("error", "error"),
					).
					Value(&logLevel),
			),
		)

		if err := form.Run(); err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}

		speedValue, err := strconv.ParseFloat(speed, 64)
		if err != nil {
			return fmt.Errorf("invalid speed %q: %w", speed, err)
		}

		cfg.Daemon.SocketPath = socketPath
		cfg.Bridge.Speed = speedValue
		cfg.Logging.LogLevel = logLevel

		if err := config.UpdateDaemon(cfg.Daemon); err != nil {
			return err
		}
		if err := config.UpdateBridge(cfg.Bridge); err != nil {
			return err
		}
		if err := config.UpdateLogging(cfg.Logging); err != nil {
			return err
		}

		logger.Infof("Configuration written to %s", config.GetConfigPath())
		return nil
	},
}

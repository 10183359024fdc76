package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/spacenav"
	"github.com/bnema/spacenav/internal/bridge"
	"github.com/bnema/spacenav/internal/config"
	"github.com/bnema/spacenav/internal/logger"
)

// bridgeCmd drives a uinput virtual mouse from device motion
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Drive a virtual mouse from the 6-DoF device",
	Long: `Bridge creates a virtual mouse through the uinput kernel module and
translates device motion onto it: sliding the cap moves the pointer,
twisting it scrolls, and the first three buttons map to left, right and
middle click.

Requires write access to /dev/uinput (usually root or the input group).`,
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

		br, err := bridge.New(config.Get().Bridge)
		if err != nil {
			return err
		}
		defer func() {
			if err := br.Close(); err != nil {
				logger.Errorf("Failed to close virtual mouse: %v", err)
			}
		}()

		// Stale events from before the bridge started would jerk the
		// pointer on the first read.
		if n, err := conn.Flush(spacenav.EventAny); err == nil && n > 0 {
			logger.Debugf("Discarded %d stale event(s)", n)
		}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		errc := make(chan error, 1)
		go func() {
			for {
				ev, err := conn.Wait()
				if err != nil {
					errc <- err
					return
				}
				if err := br.HandleEvent(ev); err != nil {
					errc <- err
					return
				}
			}
		}()

		logger.Info("Bridge running, press Ctrl+C to stop")
		select {
		case s := <-sig:
			logger.Infof("Received %v, shutting down", s)
			return nil
		case err := <-errc:
			return fmt.Errorf("bridge stopped: %w", err)
		}
	},
}

package commands

import (
	"fmt"
	"time"

	"ble_gateway/internal/config"

	"github.com/spf13/cobra"
)

// applyFlags overrides env configuration with flags set on the command line.
func applyFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("listen") {
		c.ListenAddr = listenAddr
	}
	if flags.Changed("rpc") {
		c.RPCURL = rpcURL
	}
	if flags.Changed("store") {
		c.StoreBackend = storeBackend
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("dev") {
		c.LogDev = logDev
	}
	if flags.Changed("mining-interval") {
		d, err := time.ParseDuration(miningInterval)
		if err != nil {
			return fmt.Errorf("--mining-interval: %w", err)
		}
		c.MiningCheckInterval = d
	}
	if flags.Changed("mining-timeout") {
		d, err := time.ParseDuration(miningTimeout)
		if err != nil {
			return fmt.Errorf("--mining-timeout: %w", err)
		}
		c.MiningTimeout = d
	}
	return nil
}

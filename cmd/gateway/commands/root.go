package commands

import (
	"ble_gateway/internal/config"
	"ble_gateway/internal/utils/log"

	"github.com/spf13/cobra"
)

var (
	cfg config.Config

	listenAddr     string
	rpcURL         string
	storeBackend   string
	logLevel       string
	logDev         bool
	miningInterval string
	miningTimeout  string
)

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "gateway",
		Short:         "BLE characteristic gateway to an Ethereum node",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, &loaded); err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return log.Init(cfg.LogLevel, cfg.LogDev)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&listenAddr, "listen", "", "listen address (GATEWAY_LISTEN_ADDR)")
	flags.StringVar(&rpcURL, "rpc", "", "ethereum node RPC URL (GATEWAY_RPC_URL)")
	flags.StringVar(&storeBackend, "store", "", "store backend: mongo or memory (GATEWAY_STORE)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (GATEWAY_LOG_LEVEL)")
	flags.BoolVar(&logDev, "dev", false, "human readable development logging (GATEWAY_LOG_DEV)")
	flags.StringVar(&miningInterval, "mining-interval", "", "receipt poll interval (GATEWAY_MINING_INTERVAL)")
	flags.StringVar(&miningTimeout, "mining-timeout", "", "give up on an unmined auth tx after this long, 0 waits forever (GATEWAY_MINING_TIMEOUT)")

	root.AddCommand(serveCmd(), registerCmd(), resetCmd())
	return root
}

func Execute() error {
	root := newRoot()
	err := root.Execute()
	if err != nil {
		root.PrintErrln("error:", err)
	}
	_ = log.Sync()
	return err
}

package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "swapper",
		Short:        "Routed, slippage-bounded swaps on SaucerSwap V2",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "JSON-RPC relay URL")
	root.PersistentFlags().String("network", "mainnet", "network registry (mainnet, testnet)")
	root.PersistentFlags().String("pg-dsn", "", "Postgres DSN for the token registry and results")
	root.PersistentFlags().Bool("refresh-tokens", true, "load the token registry from Postgres when a DSN is set")
	root.PersistentFlags().Int("max-retries", 3, "maximum retry attempts for reads")
	root.PersistentFlags().Duration("retry-backoff", 300*time.Millisecond, "initial read retry backoff")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newExecuteCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newRouteCmd())
	root.AddCommand(newTokensCmd())
	root.AddCommand(newAssociateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

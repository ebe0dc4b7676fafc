package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "swapd",
		Short:        "Uniswap v4 swap routing and payment session service",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "JSON-RPC URL")
	root.PersistentFlags().String("network", "base", "network (base, base-sepolia)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(),
		newQuoteCmd(),
		newRouteCmd(),
		newIntentCmd(),
		newStatusCmd(),
		newPriceCmd(),
	)

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

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"swapPay/internal/config"
)

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Fetch the ETH/USD price through the oracle",
		RunE:  runPrice,
	}
	cmd.Flags().String("redis", "", "Redis URL for the shared price slot")
	return cmd
}

func runPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	prices, closePrices, err := newOracle(cfg, logger)
	if err != nil {
		return err
	}
	defer closePrices()

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.PriceTimeout+time.Second)
	defer cancel()
	return printJSON(cmd, prices.Price(ctx))
}

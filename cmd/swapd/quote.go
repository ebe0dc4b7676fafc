package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swapPay/internal/chain"
	"swapPay/internal/config"
	"swapPay/internal/model"
	"swapPay/internal/swap"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "quote <token-in> <token-out> <amount>",
		Short:   "Quote an exact-input swap",
		Example: "swapd quote ETH USDC 0.5",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSwapService(cmd, func(ctx context.Context, svc *swap.Service) error {
				quote, err := svc.Quote(ctx, swapRequest(args))
				if err != nil {
					return err
				}
				return printJSON(cmd, quote)
			})
		},
	}
	return cmd
}

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "route <token-in> <token-out> <amount>",
		Short:   "Quote a swap and encode the Universal Router call",
		Example: "swapd route WETH USDC 1 --slippage-bps 30",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSwapService(cmd, func(ctx context.Context, svc *swap.Service) error {
				route, err := svc.Route(ctx, swapRequest(args), swap.RouteOptions{})
				if err != nil {
					return err
				}
				return printJSON(cmd, route)
			})
		},
	}
	cmd.Flags().Int("slippage-bps", 50, "slippage in basis points")
	cmd.Flags().Duration("deadline", 20*time.Minute, "swap deadline")
	return cmd
}

func swapRequest(args []string) model.SwapRequest {
	return model.SwapRequest{TokenIn: args[0], TokenOut: args[1], Amount: args[2]}
}

func withSwapService(cmd *cobra.Command, fn func(context.Context, *swap.Service) error) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	svc := swap.NewService(chainClient, swap.Config{
		Network:     cfg.Network,
		SlippageBps: cfg.SlippageBps,
		Deadline:    cfg.Deadline,
	}, logger)
	logger.Debug("swap service ready", zap.String("network", cfg.Network.Name))
	return fn(ctx, svc)
}

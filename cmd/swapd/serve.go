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

	"swapPay/internal/balance"
	"swapPay/internal/chain"
	"swapPay/internal/config"
	"swapPay/internal/dex"
	"swapPay/internal/relay"
	"swapPay/internal/server"
	"swapPay/internal/session"
	"swapPay/internal/storage"
	"swapPay/internal/swap"
	"swapPay/internal/txstatus"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "listen address")
	cmd.Flags().StringSlice("cors-origin", []string{"*"}, "allowed CORS origins")
	cmd.Flags().Int("slippage-bps", 50, "default slippage in basis points")
	cmd.Flags().Duration("deadline", 20*time.Minute, "default swap deadline")
	cmd.Flags().String("redis", "", "Redis URL for the shared price slot")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the session journal")
	cmd.Flags().String("journal", "./data/sessions.jsonl", "JSONL session journal when no Postgres DSN is set")
	cmd.Flags().Duration("track-timeout", 5*time.Minute, "how long to follow a submitted transaction")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	if chainID.Uint64() != cfg.Network.ChainID {
		return fmt.Errorf("rpc serves chain %s, configured network %s is %d", chainID, cfg.Network.Name, cfg.Network.ChainID)
	}

	prices, closePrices, err := newOracle(cfg, logger)
	if err != nil {
		return err
	}
	defer closePrices()

	journal, closeJournal, err := newJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeJournal()
	// Both journal backends can read sessions back once they are reaped.
	archive, _ := journal.(storage.Archive)

	decoder, err := dex.NewSwapDecoder(cfg.Network.Contracts.PoolManager)
	if err != nil {
		return err
	}

	swapSvc := swap.NewService(chainClient, swap.Config{
		Network:     cfg.Network,
		SlippageBps: cfg.SlippageBps,
		Deadline:    cfg.Deadline,
	}, logger)
	executor := relay.New(chainClient, cfg.Network, logger)
	tracker := txstatus.NewTracker(chainClient, decoder, txstatus.Config{
		Interval:         cfg.TrackInterval,
		Timeout:          cfg.TrackTimeout,
		MinConfirmations: cfg.MinConfirmations,
	}, logger)
	balances := balance.NewReader(chainClient, cfg.Network, prices, logger)

	sessions := session.NewManager(session.Deps{
		Network:  cfg.Network,
		Balances: balances,
		Router:   swapSvc,
		Executor: executor,
		Tracker:  tracker,
		Journal:  journal,
		Logger:   logger,
		Idle:     cfg.SessionIdle,
	})

	srv := server.New(server.Config{
		Listen:           cfg.Listen,
		CORSOrigins:      cfg.CORSOrigin,
		SessionRetention: cfg.SessionRetention,
	}, server.Deps{
		Swap:     swapSvc,
		Executor: executor,
		Status:   tracker,
		Prices:   prices,
		Sessions: sessions,
		Archive:  archive,
	}, logger)

	logger.Info("swapd start",
		zap.String("network", cfg.Network.Name),
		zap.Uint64("chain_id", cfg.Network.ChainID),
		zap.String("listen", cfg.Listen),
		zap.Uint32("slippage_bps", cfg.SlippageBps),
		zap.Duration("deadline", cfg.Deadline),
		zap.Strings("price_sources", cfg.PriceSources),
		zap.Bool("redis", cfg.RedisURL != ""),
	)

	return srv.Run(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"swapPay/internal/chain"
	"swapPay/internal/config"
	"swapPay/internal/dex"
	"swapPay/internal/txstatus"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <tx-hash>",
		Short: "Show the status of a transaction, optionally following it",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
	cmd.Flags().Bool("watch", false, "print every state change until terminal")
	cmd.Flags().Duration("track-interval", 3*time.Second, "poll interval when watching")
	cmd.Flags().Duration("track-timeout", 5*time.Minute, "give up watching after this long")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	raw, err := hexutil.Decode(args[0])
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("invalid transaction hash %q", args[0])
	}
	hash := common.BytesToHash(raw)

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

	decoder, err := dex.NewSwapDecoder(cfg.Network.Contracts.PoolManager)
	if err != nil {
		return err
	}
	tracker := txstatus.NewTracker(chainClient, decoder, txstatus.Config{
		Interval:         cfg.TrackInterval,
		Timeout:          cfg.TrackTimeout,
		MinConfirmations: cfg.MinConfirmations,
	}, logger)

	watch, _ := cmd.Flags().GetBool("watch")
	if !watch {
		status, err := tracker.Status(ctx, hash)
		if err != nil {
			return err
		}
		return printJSON(cmd, status)
	}
	for status := range tracker.Watch(ctx, hash) {
		if err := printJSON(cmd, status); err != nil {
			return err
		}
	}
	return ctx.Err()
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"swapPay/internal/network"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network.Network != network.Base {
		t.Fatalf("expected base network, got %s", cfg.Network.Name)
	}
	if cfg.SlippageBps != 50 || cfg.Deadline != 20*time.Minute {
		t.Fatalf("unexpected route defaults: %d %s", cfg.SlippageBps, cfg.Deadline)
	}
	if len(cfg.PriceSources) != 2 || cfg.PriceSources[0] != "coinbase" {
		t.Fatalf("unexpected price sources %v", cfg.PriceSources)
	}
	if cfg.TrackTimeout != 5*time.Minute {
		t.Fatalf("unexpected track timeout %s", cfg.TrackTimeout)
	}
	if cfg.SessionIdle != 30*time.Minute {
		t.Fatalf("unexpected session idle timeout %s", cfg.SessionIdle)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	file := filepath.Join(dir, "swapd.yaml")
	content := "network: base-sepolia\nslippage-bps: 75\nprice-sources: coingecko\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SWAPD_TRACK_TIMEOUT", "90s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("slippage-bps", 0, "")
	if err := flags.Parse([]string{"--slippage-bps=120"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(file, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Network.ChainID != 84532 {
		t.Fatalf("expected sepolia from file, got %d", cfg.Network.ChainID)
	}
	if cfg.SlippageBps != 120 {
		t.Fatalf("flag should win, got %d", cfg.SlippageBps)
	}
	if cfg.TrackTimeout != 90*time.Second {
		t.Fatalf("env should apply, got %s", cfg.TrackTimeout)
	}
	if len(cfg.PriceSources) != 1 || cfg.PriceSources[0] != "coingecko" {
		t.Fatalf("unexpected price sources %v", cfg.PriceSources)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SWAPD_RPC=http://node.internal:8545\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("SWAPD_RPC") })

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "http://node.internal:8545" {
		t.Fatalf("expected rpc from .env, got %q", cfg.RPCURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("SWAPD_NETWORK", "solana")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected unsupported network error")
	}
	t.Setenv("SWAPD_NETWORK", "base")
	t.Setenv("SWAPD_SLIPPAGE_BPS", "10000")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected slippage range error")
	}
}

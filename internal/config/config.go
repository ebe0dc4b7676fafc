package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"swapPay/internal/network"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL     string
	Network    network.Params
	Listen     string
	LogLevel   string
	CORSOrigin []string

	SlippageBps uint32
	Deadline    time.Duration

	PriceSources  []string
	CoinbaseURL   string
	CoinGeckoURL  string
	PriceTimeout  time.Duration
	PriceTTL      time.Duration
	DegradedTTL   time.Duration
	FallbackPrice float64
	RedisURL      string

	TrackInterval    time.Duration
	TrackTimeout     time.Duration
	MinConfirmations uint64

	Journal          string
	PGDSN            string
	SessionRetention time.Duration
	SessionIdle      time.Duration

	MaxRetries   int
	RetryBackoff time.Duration
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SWAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "base")
	v.SetDefault("listen", ":8080")
	v.SetDefault("log-level", "info")
	v.SetDefault("cors-origin", []string{"*"})
	v.SetDefault("slippage-bps", 50)
	v.SetDefault("deadline", 20*time.Minute)
	v.SetDefault("price-sources", []string{"coinbase", "coingecko"})
	v.SetDefault("coinbase-url", "https://api.coinbase.com")
	v.SetDefault("coingecko-url", "https://api.coingecko.com")
	v.SetDefault("price-timeout", 5*time.Second)
	v.SetDefault("price-ttl", 60*time.Second)
	v.SetDefault("degraded-ttl", 15*time.Second)
	v.SetDefault("fallback-price", 2000.0)
	v.SetDefault("track-interval", 3*time.Second)
	v.SetDefault("track-timeout", 5*time.Minute)
	v.SetDefault("min-confirmations", 1)
	v.SetDefault("journal", "./data/sessions.jsonl")
	v.SetDefault("session-retention", 30*time.Minute)
	v.SetDefault("session-idle", 30*time.Minute)
	v.SetDefault("max-retries", 2)
	v.SetDefault("retry-backoff", 200*time.Millisecond)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("swapd")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	params, err := network.Resolve(v.GetString("network"))
	if err != nil {
		return Config{}, err
	}

	slippage := v.GetInt("slippage-bps")
	if slippage < 0 || slippage >= 10_000 {
		return Config{}, fmt.Errorf("slippage-bps must be in [0, 10000): %d", slippage)
	}

	cfg := Config{
		RPCURL:           v.GetString("rpc"),
		Network:          params,
		Listen:           v.GetString("listen"),
		LogLevel:         v.GetString("log-level"),
		CORSOrigin:       getStringSlice(v, "cors-origin"),
		SlippageBps:      uint32(slippage),
		Deadline:         v.GetDuration("deadline"),
		PriceSources:     getStringSlice(v, "price-sources"),
		CoinbaseURL:      v.GetString("coinbase-url"),
		CoinGeckoURL:     v.GetString("coingecko-url"),
		PriceTimeout:     v.GetDuration("price-timeout"),
		PriceTTL:         v.GetDuration("price-ttl"),
		DegradedTTL:      v.GetDuration("degraded-ttl"),
		FallbackPrice:    v.GetFloat64("fallback-price"),
		RedisURL:         v.GetString("redis"),
		TrackInterval:    v.GetDuration("track-interval"),
		TrackTimeout:     v.GetDuration("track-timeout"),
		MinConfirmations: v.GetUint64("min-confirmations"),
		Journal:          v.GetString("journal"),
		PGDSN:            v.GetString("pg-dsn"),
		SessionRetention: v.GetDuration("session-retention"),
		SessionIdle:      v.GetDuration("session-idle"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

package oracle

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"swapPay/internal/metrics"
	"swapPay/internal/model"
)

const (
	// AssetETH is the slot key for the native asset's USD price.
	AssetETH = "ETH-USD"

	DefaultTTL         = 60 * time.Second
	DefaultDegradedTTL = 15 * time.Second
	// DefaultFallbackPrice errs low so balance checks under-count native value.
	DefaultFallbackPrice = 2000.0
)

// Config tunes cache lifetimes and the fallback constant.
type Config struct {
	TTL           time.Duration
	DegradedTTL   time.Duration
	FallbackPrice float64
}

// Oracle serves a cached native asset price. Sources are tried in order and
// the fallback constant is used when all of them fail, so Price never errors.
type Oracle struct {
	sources []Source
	store   Store
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
}

func New(sources []Source, store Store, cfg Config, logger *zap.Logger) *Oracle {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DegradedTTL <= 0 {
		cfg.DegradedTTL = DefaultDegradedTTL
	}
	if cfg.FallbackPrice <= 0 {
		cfg.FallbackPrice = DefaultFallbackPrice
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{sources: sources, store: store, cfg: cfg, now: time.Now, logger: logger}
}

// EthPriceUSD returns the native asset price in USD.
func (o *Oracle) EthPriceUSD(ctx context.Context) float64 {
	return o.Price(ctx).Price
}

// Price returns the cached slot while fresh, otherwise refreshes it.
// A degraded (fallback) slot is written too but expires after DegradedTTL.
func (o *Oracle) Price(ctx context.Context) model.PriceCache {
	now := o.now()
	if entry, ok, err := o.store.Get(ctx, AssetETH); err != nil {
		o.logger.Warn("price cache read failed", zap.Error(err))
	} else if ok && o.fresh(entry, now) {
		return entry
	}

	for _, src := range o.sources {
		price, err := src.FetchPrice(ctx)
		if err == nil && !validPrice(price) {
			err = fmt.Errorf("invalid price %v", price)
		}
		if err != nil {
			metrics.PriceFetches.WithLabelValues(src.Name(), "error").Inc()
			o.logger.Warn("price source failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		metrics.PriceFetches.WithLabelValues(src.Name(), "ok").Inc()
		return o.save(ctx, model.PriceCache{
			Asset:     AssetETH,
			Price:     price,
			Source:    src.Name(),
			Timestamp: now,
		})
	}

	metrics.OracleDegraded.Inc()
	o.logger.Warn("using fallback price",
		zap.Error(model.ErrOracleDegraded),
		zap.Float64("price", o.cfg.FallbackPrice),
		zap.Duration("retry_after", o.cfg.DegradedTTL),
	)
	return o.save(ctx, model.PriceCache{
		Asset:     AssetETH,
		Price:     o.cfg.FallbackPrice,
		Source:    "fallback",
		Degraded:  true,
		Timestamp: now,
	})
}

func (o *Oracle) save(ctx context.Context, entry model.PriceCache) model.PriceCache {
	if err := o.store.Set(ctx, entry); err != nil {
		o.logger.Warn("price cache write failed", zap.Error(err))
	}
	return entry
}

func (o *Oracle) fresh(entry model.PriceCache, now time.Time) bool {
	ttl := o.cfg.TTL
	if entry.Degraded {
		ttl = o.cfg.DegradedTTL
	}
	return now.Sub(entry.Timestamp) < ttl
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

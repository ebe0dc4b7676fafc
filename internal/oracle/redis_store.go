package oracle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"swapPay/internal/model"
)

// RedisStore shares price slots between replicas. Each asset lives in a hash
// at "price:{asset}" with fields price, ts (unix nanos), source and degraded.
type RedisStore struct {
	rdb    *redis.Client
	expiry time.Duration
}

// NewRedisStore wraps rdb. expiry bounds how long an abandoned slot lingers.
func NewRedisStore(rdb *redis.Client, expiry time.Duration) *RedisStore {
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	return &RedisStore{rdb: rdb, expiry: expiry}
}

func priceKey(asset string) string {
	return "price:" + asset
}

func (s *RedisStore) Set(ctx context.Context, entry model.PriceCache) error {
	key := priceKey(entry.Asset)
	fields := map[string]interface{}{
		"price":    strconv.FormatFloat(entry.Price, 'f', -1, 64),
		"ts":       strconv.FormatInt(entry.Timestamp.UnixNano(), 10),
		"source":   entry.Source,
		"degraded": strconv.FormatBool(entry.Degraded),
	}
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", entry.Asset, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, asset string) (model.PriceCache, bool, error) {
	vals, err := s.rdb.HGetAll(ctx, priceKey(asset)).Result()
	if err != nil {
		return model.PriceCache{}, false, fmt.Errorf("redis: get price %s: %w", asset, err)
	}
	if len(vals) == 0 {
		return model.PriceCache{}, false, nil
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return model.PriceCache{}, false, fmt.Errorf("redis: parse price %s: %w", asset, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return model.PriceCache{}, false, fmt.Errorf("redis: parse ts %s: %w", asset, err)
	}
	degraded, _ := strconv.ParseBool(vals["degraded"])

	return model.PriceCache{
		Asset:     asset,
		Price:     price,
		Source:    vals["source"],
		Degraded:  degraded,
		Timestamp: time.Unix(0, tsNano),
	}, true, nil
}

var _ Store = (*RedisStore)(nil)

package dex

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPay/internal/chain"
	"swapPay/internal/model"
	"swapPay/internal/network"
)

// NativeMeta describes the chain's native asset, addressed as the zero currency.
var NativeMeta = model.TokenMeta{
	Address:  common.Address{}.Hex(),
	Decimals: 18,
	Symbol:   "ETH",
	Name:     "Ether",
	Native:   true,
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenResolver resolves ERC20 metadata through a cache.
type TokenResolver struct {
	caller chain.Caller
	cache  *TokenMetaCache
	logger *zap.Logger
}

// NewTokenResolver builds a resolver. A nil cache gets a fresh one.
func NewTokenResolver(caller chain.Caller, cache *TokenMetaCache, logger *zap.Logger) *TokenResolver {
	if cache == nil {
		cache = NewTokenMetaCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenResolver{caller: caller, cache: cache, logger: logger}
}

// SeedNetwork preloads the wrapped and stable assets of a network so the
// common pairs never need a metadata round trip.
func (r *TokenResolver) SeedNetwork(params network.Params) {
	r.cache.Set(params.Tokens.Wrapped, model.TokenMeta{
		Address:  params.Tokens.Wrapped.Hex(),
		Decimals: 18,
		Symbol:   "WETH",
		Name:     "Wrapped Ether",
	})
	r.cache.Set(params.Tokens.Stable, model.TokenMeta{
		Address:  params.Tokens.Stable.Hex(),
		Decimals: params.Tokens.StableDecimals,
		Symbol:   "USDC",
		Name:     "USD Coin",
	})
}

// Resolve returns metadata for token, reading it from chain on a cache miss.
func (r *TokenResolver) Resolve(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if network.IsNative(token) {
		return NativeMeta, nil
	}
	if meta, ok := r.cache.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, r.caller, token, r.logger)
	if err != nil {
		return meta, err
	}
	r.cache.Set(token, meta)
	return meta, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls.
func FetchTokenMeta(ctx context.Context, caller chain.Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		return callMethod(ctx, caller, token, parsed, method)
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return meta, fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if meta.Symbol == "" {
		meta.Symbol = shortAddress(token)
	}

	return meta, nil
}

func shortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

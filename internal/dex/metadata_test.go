package dex

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"swapPay/internal/network"
)

func TestTokenResolverNativeShortCircuit(t *testing.T) {
	caller := newFakeCaller()
	meta, err := NewTokenResolver(caller, nil, zap.NewNop()).Resolve(context.Background(), [20]byte{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !meta.Native || meta.Symbol != "ETH" || meta.Decimals != 18 {
		t.Fatalf("native meta mismatch: %+v", meta)
	}
}

func TestTokenResolverCachesOnChainMetadata(t *testing.T) {
	caller := newFakeCaller()
	erc20 := mustABI(erc20ABIStringInstance())
	caller.on(tokenA, erc20, "decimals", returns(uint8(6)))
	caller.on(tokenA, erc20, "symbol", returns("USDC"))
	caller.on(tokenA, erc20, "name", returns("USD Coin"))

	resolver := NewTokenResolver(caller, nil, zap.NewNop())
	for i := 0; i < 3; i++ {
		meta, err := resolver.Resolve(context.Background(), tokenA)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if meta.Symbol != "USDC" || meta.Decimals != 6 || meta.Name != "USD Coin" {
			t.Fatalf("meta mismatch: %+v", meta)
		}
	}
	if n := caller.count(tokenA, erc20, "decimals"); n != 1 {
		t.Fatalf("expected one decimals call, got %d", n)
	}
}

func TestTokenResolverFailureIsNotCached(t *testing.T) {
	caller := newFakeCaller()
	resolver := NewTokenResolver(caller, nil, zap.NewNop())
	if _, err := resolver.Resolve(context.Background(), tokenB); err == nil {
		t.Fatalf("expected error for missing token")
	}
	if _, ok := resolver.cache.Get(tokenB); ok {
		t.Fatalf("failed lookup must not be cached")
	}
}

func TestTokenResolverSeedNetwork(t *testing.T) {
	params, err := network.Base.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	resolver := NewTokenResolver(newFakeCaller(), nil, zap.NewNop())
	resolver.SeedNetwork(params)
	meta, err := resolver.Resolve(context.Background(), params.Tokens.Stable)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if meta.Symbol != "USDC" || meta.Decimals != 6 {
		t.Fatalf("seeded meta mismatch: %+v", meta)
	}
}

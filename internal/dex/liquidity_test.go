package dex

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPay/internal/network"
)

var testTiers = []network.FeeTier{network.TierLow, network.TierMedium, network.TierHigh}

// liquidityByFee wires getLiquidity to return per-tier values. Missing tiers revert.
func liquidityByFee(t *testing.T, caller *fakeCaller, values map[uint32]*big.Int) {
	t.Helper()
	ids := make(map[[32]byte]*big.Int)
	for _, tier := range testTiers {
		v, ok := values[tier.Fee]
		if !ok {
			continue
		}
		key, _ := BuildPoolKey(tokenA, tokenB, tier)
		id, err := key.ID()
		if err != nil {
			t.Fatalf("id: %v", err)
		}
		ids[id] = v
	}
	caller.on(stateView, mustABI(StateViewABI()), "getLiquidity", func(args []interface{}) ([]interface{}, error) {
		id := args[0].([32]byte)
		v, ok := ids[id]
		if !ok {
			return nil, fmt.Errorf("execution reverted")
		}
		return []interface{}{v}, nil
	})
}

func newTestSelector(caller *fakeCaller) *PoolSelector {
	return NewPoolSelector(NewStateReader(caller, stateView), testTiers, network.TierMedium, zap.NewNop())
}

func TestPoolSelectorPicksMaxLiquidity(t *testing.T) {
	caller := newFakeCaller()
	liquidityByFee(t, caller, map[uint32]*big.Int{
		500:   big.NewInt(100),
		3000:  big.NewInt(5000),
		10000: big.NewInt(4000),
	})

	sel, err := newTestSelector(caller).Select(context.Background(), tokenB, tokenA)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Tier.Fee != 3000 || sel.Fallback {
		t.Fatalf("expected medium tier, got %+v", sel.Tier)
	}
	if sel.Liquidity.Int64() != 5000 {
		t.Fatalf("liquidity mismatch: %s", sel.Liquidity)
	}
	if sel.ZeroForOne {
		t.Fatalf("tokenB -> tokenA should be oneForZero")
	}
	if len(sel.Probes) != 3 {
		t.Fatalf("expected 3 probes, got %d", len(sel.Probes))
	}
}

func TestPoolSelectorTieKeepsLowestFee(t *testing.T) {
	caller := newFakeCaller()
	liquidityByFee(t, caller, map[uint32]*big.Int{
		500:   big.NewInt(700),
		3000:  big.NewInt(700),
		10000: big.NewInt(700),
	})

	sel, err := newTestSelector(caller).Select(context.Background(), tokenA, tokenB)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Tier.Fee != 500 {
		t.Fatalf("tie should resolve to lowest fee, got %d", sel.Tier.Fee)
	}
}

func TestPoolSelectorSwallowsProbeFailures(t *testing.T) {
	caller := newFakeCaller()
	liquidityByFee(t, caller, map[uint32]*big.Int{
		10000: big.NewInt(1),
	})

	sel, err := newTestSelector(caller).Select(context.Background(), tokenA, tokenB)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if sel.Tier.Fee != 10000 || sel.Fallback {
		t.Fatalf("expected high tier, got %+v fallback=%v", sel.Tier, sel.Fallback)
	}
	failed := 0
	for _, p := range sel.Probes {
		if p.Err != nil {
			failed++
			if p.Liquidity.Sign() != 0 {
				t.Fatalf("failed probe must count as zero liquidity")
			}
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 failed probes, got %d", failed)
	}
}

func TestPoolSelectorFallsBackToDefaultTier(t *testing.T) {
	caller := newFakeCaller()
	liquidityByFee(t, caller, map[uint32]*big.Int{
		500: big.NewInt(0),
	})

	sel, err := newTestSelector(caller).Select(context.Background(), tokenA, tokenB)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !sel.Fallback {
		t.Fatalf("expected fallback selection")
	}
	if sel.Tier != network.TierMedium {
		t.Fatalf("fallback tier mismatch: %+v", sel.Tier)
	}
	want, _ := BuildPoolKey(tokenA, tokenB, network.TierMedium)
	if sel.Key != want {
		t.Fatalf("fallback key mismatch")
	}
	if sel.ID == (common.Hash{}) {
		t.Fatalf("fallback id missing")
	}
}

func TestStateReaderSlot0(t *testing.T) {
	caller := newFakeCaller()
	caller.on(stateView, mustABI(StateViewABI()), "getSlot0", returns(
		new(big.Int).Set(Q96),
		big.NewInt(-887),
		big.NewInt(0),
		big.NewInt(3000),
	))

	slot0, err := NewStateReader(caller, stateView).Slot0(context.Background(), common.Hash{1})
	if err != nil {
		t.Fatalf("slot0: %v", err)
	}
	if slot0.SqrtPriceX96.Cmp(Q96) != 0 || slot0.Tick != -887 || slot0.LPFee != 3000 {
		t.Fatalf("slot0 mismatch: %+v", slot0)
	}
}

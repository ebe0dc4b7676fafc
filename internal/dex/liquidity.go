package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapPay/internal/chain"
	"swapPay/internal/network"
)

// Slot0 is the instantaneous price state of a pool.
type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	ProtocolFee  uint32
	LPFee        uint32
}

// StateReader reads pool state through the StateView lens contract.
type StateReader struct {
	caller    chain.Caller
	stateView common.Address
}

func NewStateReader(caller chain.Caller, stateView common.Address) *StateReader {
	return &StateReader{caller: caller, stateView: stateView}
}

// Liquidity returns the in-range liquidity of a pool.
func (r *StateReader) Liquidity(ctx context.Context, id common.Hash) (*big.Int, error) {
	parsed, err := StateViewABI()
	if err != nil {
		return nil, fmt.Errorf("parse state view abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.stateView, parsed, "getLiquidity", [32]byte(id))
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Slot0 returns the current sqrt price and tick of a pool.
func (r *StateReader) Slot0(ctx context.Context, id common.Hash) (Slot0, error) {
	parsed, err := StateViewABI()
	if err != nil {
		return Slot0{}, fmt.Errorf("parse state view abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.stateView, parsed, "getSlot0", [32]byte(id))
	if err != nil {
		return Slot0{}, err
	}
	if len(values) != 4 {
		return Slot0{}, fmt.Errorf("unexpected slot0 values: %d", len(values))
	}
	sqrt, err := asBigInt(values[0])
	if err != nil {
		return Slot0{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return Slot0{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return Slot0{}, err
	}
	protocolFee, err := asBigInt(values[2])
	if err != nil {
		return Slot0{}, fmt.Errorf("protocol fee: %w", err)
	}
	lpFee, err := asBigInt(values[3])
	if err != nil {
		return Slot0{}, fmt.Errorf("lp fee: %w", err)
	}
	return Slot0{
		SqrtPriceX96: sqrt,
		Tick:         tick,
		ProtocolFee:  uint32(protocolFee.Uint64()),
		LPFee:        uint32(lpFee.Uint64()),
	}, nil
}

// LiquidityProbe reports the liquidity of a pool by id.
type LiquidityProbe interface {
	Liquidity(ctx context.Context, id common.Hash) (*big.Int, error)
}

// TierProbe is the outcome of probing one fee tier.
type TierProbe struct {
	Tier      network.FeeTier
	Key       PoolKey
	ID        common.Hash
	Liquidity *big.Int
	Err       error
}

// Selection is the pool chosen for a pair.
type Selection struct {
	Key        PoolKey
	ID         common.Hash
	ZeroForOne bool
	Tier       network.FeeTier
	Liquidity  *big.Int
	// Fallback is set when no tier had liquidity and the default tier was used
	// blindly. Quotes against such a pool usually revert.
	Fallback bool
	Probes   []TierProbe
}

// PoolSelector picks the most liquid fee tier for a pair.
type PoolSelector struct {
	probe    LiquidityProbe
	tiers    []network.FeeTier
	fallback network.FeeTier
	logger   *zap.Logger
}

func NewPoolSelector(probe LiquidityProbe, tiers []network.FeeTier, fallback network.FeeTier, logger *zap.Logger) *PoolSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolSelector{probe: probe, tiers: tiers, fallback: fallback, logger: logger}
}

// Select probes every tier concurrently. A failed probe counts as zero
// liquidity. Ties keep the earlier (cheaper) tier.
func (s *PoolSelector) Select(ctx context.Context, tokenIn, tokenOut common.Address) (Selection, error) {
	probes := make([]TierProbe, len(s.tiers))
	for i, tier := range s.tiers {
		key, _ := BuildPoolKey(tokenIn, tokenOut, tier)
		id, err := key.ID()
		if err != nil {
			return Selection{}, err
		}
		probes[i] = TierProbe{Tier: tier, Key: key, ID: id, Liquidity: new(big.Int)}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range probes {
		i := i
		g.Go(func() error {
			liq, err := s.probe.Liquidity(gctx, probes[i].ID)
			if err != nil {
				probes[i].Err = err
				s.logger.Debug("liquidity probe failed",
					zap.Uint32("fee", probes[i].Tier.Fee),
					zap.String("pool_id", probes[i].ID.Hex()),
					zap.Error(err),
				)
				return nil
			}
			if liq != nil {
				probes[i].Liquidity = liq
			}
			return nil
		})
	}
	_ = g.Wait()

	best := -1
	for i, p := range probes {
		if p.Liquidity.Sign() <= 0 {
			continue
		}
		if best < 0 || p.Liquidity.Cmp(probes[best].Liquidity) > 0 {
			best = i
		}
	}

	if best < 0 {
		key, zeroForOne := BuildPoolKey(tokenIn, tokenOut, s.fallback)
		id, err := key.ID()
		if err != nil {
			return Selection{}, err
		}
		s.logger.Warn("no pool liquidity found, using default tier",
			zap.String("token_in", tokenIn.Hex()),
			zap.String("token_out", tokenOut.Hex()),
			zap.Uint32("fee", s.fallback.Fee),
		)
		return Selection{
			Key:        key,
			ID:         id,
			ZeroForOne: zeroForOne,
			Tier:       s.fallback,
			Liquidity:  new(big.Int),
			Fallback:   true,
			Probes:     probes,
		}, nil
	}

	chosen := probes[best]
	_, zeroForOne := BuildPoolKey(tokenIn, tokenOut, chosen.Tier)
	return Selection{
		Key:        chosen.Key,
		ID:         chosen.ID,
		ZeroForOne: zeroForOne,
		Tier:       chosen.Tier,
		Liquidity:  chosen.Liquidity,
		Probes:     probes,
	}, nil
}

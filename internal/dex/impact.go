package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPay/internal/model"
)

const floatPrec = 256

// Q96 is 2^96, the fixed-point scale of sqrtPriceX96.
var Q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// SpotPrice converts sqrtPriceX96 to "out per in" in human units.
// dec0 and dec1 are the decimals of currency0 and currency1.
func SpotPrice(sqrtPriceX96 *big.Int, dec0, dec1 uint8, zeroForOne bool) (*big.Float, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return nil, fmt.Errorf("sqrt price is zero")
	}
	ratio := new(big.Float).SetPrec(floatPrec).Quo(
		new(big.Float).SetPrec(floatPrec).SetInt(sqrtPriceX96),
		new(big.Float).SetPrec(floatPrec).SetInt(Q96),
	)
	raw := new(big.Float).SetPrec(floatPrec).Mul(ratio, ratio)

	spot := raw.Mul(raw, pow10(dec0))
	spot.Quo(spot, pow10(dec1))
	if spot.Sign() == 0 {
		return nil, fmt.Errorf("spot price underflow")
	}
	if !zeroForOne {
		spot = new(big.Float).SetPrec(floatPrec).Quo(big.NewFloat(1).SetPrec(floatPrec), spot)
	}
	return spot, nil
}

// ExecutionPrice returns amountOut/amountIn in human units.
func ExecutionPrice(amountIn *big.Int, inDecimals uint8, amountOut *big.Int, outDecimals uint8) (*big.Float, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("amount in is zero")
	}
	if amountOut == nil {
		return nil, fmt.Errorf("amount out is nil")
	}
	in := new(big.Float).SetPrec(floatPrec).Quo(new(big.Float).SetPrec(floatPrec).SetInt(amountIn), pow10(inDecimals))
	out := new(big.Float).SetPrec(floatPrec).Quo(new(big.Float).SetPrec(floatPrec).SetInt(amountOut), pow10(outDecimals))
	return out.Quo(out, in), nil
}

// ImpactPct returns max(0, (spot-exec)/spot) as a percentage.
func ImpactPct(spot, exec *big.Float) float64 {
	if spot == nil || exec == nil || spot.Sign() <= 0 {
		return 0
	}
	diff := new(big.Float).SetPrec(floatPrec).Sub(spot, exec)
	if diff.Sign() <= 0 {
		return 0
	}
	diff.Quo(diff, spot)
	diff.Mul(diff, big.NewFloat(100))
	pct, _ := diff.Float64()
	return pct
}

// ImpactSeverity buckets an impact percentage for display.
func ImpactSeverity(pct float64) string {
	switch {
	case pct <= 0:
		return "none"
	case pct < 1:
		return "low"
	case pct < 3:
		return "moderate"
	case pct < 10:
		return "high"
	default:
		return "extreme"
	}
}

func pow10(n uint8) *big.Float {
	v := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	return new(big.Float).SetPrec(floatPrec).SetInt(v)
}

type slot0Reader interface {
	Slot0(ctx context.Context, id common.Hash) (Slot0, error)
}

// ImpactCalculator compares a quote against the pool's spot price.
type ImpactCalculator struct {
	state  slot0Reader
	logger *zap.Logger
}

func NewImpactCalculator(state slot0Reader, logger *zap.Logger) *ImpactCalculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImpactCalculator{state: state, logger: logger}
}

// Calculate returns the price impact of q in percent. Unreadable pool state
// yields 0 rather than an error.
func (c *ImpactCalculator) Calculate(ctx context.Context, q QuoteResult) float64 {
	slot0, err := c.state.Slot0(ctx, q.Selection.ID)
	if err != nil {
		c.logger.Debug("slot0 read failed", zap.String("pool_id", q.Selection.ID.Hex()), zap.Error(err))
		return 0
	}
	return impactFromSlot0(slot0.SqrtPriceX96, q.TokenIn, q.TokenOut, q.Selection.ZeroForOne, q.AmountIn, q.AmountOut, c.logger)
}

func impactFromSlot0(sqrtPriceX96 *big.Int, in, out model.TokenMeta, zeroForOne bool, amountIn, amountOut *big.Int, logger *zap.Logger) float64 {
	dec0, dec1 := in.Decimals, out.Decimals
	if !zeroForOne {
		dec0, dec1 = out.Decimals, in.Decimals
	}
	spot, err := SpotPrice(sqrtPriceX96, dec0, dec1, zeroForOne)
	if err != nil {
		logger.Debug("spot price unavailable", zap.Error(err))
		return 0
	}
	exec, err := ExecutionPrice(amountIn, in.Decimals, amountOut, out.Decimals)
	if err != nil {
		logger.Debug("execution price unavailable", zap.Error(err))
		return 0
	}
	return ImpactPct(spot, exec)
}

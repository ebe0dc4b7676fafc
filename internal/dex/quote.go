package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"swapPay/internal/chain"
	"swapPay/internal/model"
)

var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

type quoteExactSingleParams struct {
	PoolKey     abiPoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

// QuoteResult is the simulated outcome of an exact-input swap.
type QuoteResult struct {
	TokenIn     model.TokenMeta
	TokenOut    model.TokenMeta
	AmountIn    *big.Int
	AmountOut   *big.Int
	GasEstimate uint64
	Selection   Selection
}

// QuoteEngine simulates swaps against the V4Quoter.
type QuoteEngine struct {
	caller chain.Caller
	quoter common.Address
	tokens *TokenResolver
	logger *zap.Logger
}

func NewQuoteEngine(caller chain.Caller, quoter common.Address, tokens *TokenResolver, logger *zap.Logger) *QuoteEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteEngine{caller: caller, quoter: quoter, tokens: tokens, logger: logger}
}

// Quote simulates selling amount (human units) of tokenIn through the selected pool.
// Failures are wrapped in model.ErrQuoteFailure and never retried here.
func (e *QuoteEngine) Quote(ctx context.Context, sel Selection, tokenIn, tokenOut common.Address, amount string) (QuoteResult, error) {
	inMeta, err := e.tokens.Resolve(ctx, tokenIn)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("%w: token in metadata: %v", model.ErrQuoteFailure, err)
	}
	outMeta, err := e.tokens.Resolve(ctx, tokenOut)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("%w: token out metadata: %v", model.ErrQuoteFailure, err)
	}

	amountIn, err := ParseUnits(amount, inMeta.Decimals)
	if err != nil {
		return QuoteResult{}, fmt.Errorf("%w: %v", model.ErrQuoteFailure, err)
	}
	if amountIn.Sign() == 0 {
		return QuoteResult{}, fmt.Errorf("%w: amount must be positive", model.ErrQuoteFailure)
	}
	if amountIn.Cmp(maxUint128) > 0 {
		return QuoteResult{}, fmt.Errorf("%w: amount exceeds uint128", model.ErrQuoteFailure)
	}

	amountOut, gas, err := e.quoteRaw(ctx, sel.Key, sel.ZeroForOne, amountIn)
	if err != nil {
		e.logger.Debug("quote simulation failed",
			zap.String("pool_id", sel.ID.Hex()),
			zap.Bool("fallback_tier", sel.Fallback),
			zap.Error(err),
		)
		return QuoteResult{}, fmt.Errorf("%w: %v", model.ErrQuoteFailure, err)
	}
	if amountOut.Sign() == 0 {
		return QuoteResult{}, fmt.Errorf("%w: zero output", model.ErrQuoteFailure)
	}

	return QuoteResult{
		TokenIn:     inMeta,
		TokenOut:    outMeta,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		GasEstimate: gas,
		Selection:   sel,
	}, nil
}

func (e *QuoteEngine) quoteRaw(ctx context.Context, key PoolKey, zeroForOne bool, amountIn *big.Int) (*big.Int, uint64, error) {
	parsed, err := QuoterABI()
	if err != nil {
		return nil, 0, fmt.Errorf("parse quoter abi: %w", err)
	}
	values, err := callMethod(ctx, e.caller, e.quoter, parsed, "quoteExactInputSingle", quoteExactSingleParams{
		PoolKey:     key.tuple(),
		ZeroForOne:  zeroForOne,
		ExactAmount: amountIn,
		HookData:    []byte{},
	})
	if err != nil {
		return nil, 0, err
	}
	if len(values) != 2 {
		return nil, 0, fmt.Errorf("unexpected quote values: %d", len(values))
	}
	amountOut, err := asBigInt(values[0])
	if err != nil {
		return nil, 0, fmt.Errorf("amount out: %w", err)
	}
	gas, err := asBigInt(values[1])
	if err != nil {
		return nil, 0, fmt.Errorf("gas estimate: %w", err)
	}
	return amountOut, gas.Uint64(), nil
}

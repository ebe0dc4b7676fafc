package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"swapPay/internal/dex"
	"swapPay/internal/model"
	"swapPay/internal/network"
)

type stubSelector struct {
	fallback bool
}

func (s stubSelector) Select(_ context.Context, tokenIn, tokenOut common.Address) (dex.Selection, error) {
	key, zeroForOne := dex.BuildPoolKey(tokenIn, tokenOut, network.TierLow)
	id, err := key.ID()
	if err != nil {
		return dex.Selection{}, err
	}
	return dex.Selection{
		Key:        key,
		ID:         id,
		ZeroForOne: zeroForOne,
		Tier:       network.TierLow,
		Liquidity:  big.NewInt(42),
		Fallback:   s.fallback,
	}, nil
}

type stubQuoter struct {
	err error
}

func (q stubQuoter) Quote(_ context.Context, sel dex.Selection, tokenIn, tokenOut common.Address, amount string) (dex.QuoteResult, error) {
	if q.err != nil {
		return dex.QuoteResult{}, q.err
	}
	in := dex.NativeMeta
	if tokenIn != (common.Address{}) {
		in = model.TokenMeta{Address: tokenIn.Hex(), Symbol: "USDC", Decimals: 6}
	}
	out := model.TokenMeta{Address: tokenOut.Hex(), Symbol: "USDC", Decimals: 6}
	if tokenOut == (common.Address{}) {
		out = dex.NativeMeta
	}
	amountIn, err := dex.ParseUnits(amount, in.Decimals)
	if err != nil {
		return dex.QuoteResult{}, fmt.Errorf("%w: %v", model.ErrQuoteFailure, err)
	}
	return dex.QuoteResult{
		TokenIn:     in,
		TokenOut:    out,
		AmountIn:    amountIn,
		AmountOut:   big.NewInt(200_000_000),
		GasEstimate: 110000,
		Selection:   sel,
	}, nil
}

type stubImpact float64

func (i stubImpact) Calculate(context.Context, dex.QuoteResult) float64 { return float64(i) }

func newTestService(t *testing.T, sel poolSelector, q quoter) *Service {
	t.Helper()
	params, err := network.Base.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	svc := newService(Config{Network: params, SlippageBps: 50, Deadline: 20 * time.Minute}, sel, q, stubImpact(0.42), zap.NewNop())
	svc.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return svc
}

func TestServiceQuote(t *testing.T) {
	svc := newTestService(t, stubSelector{}, stubQuoter{})
	quote, err := svc.Quote(context.Background(), model.SwapRequest{TokenIn: "ETH", TokenOut: "USDC", Amount: "0.1"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.TokenIn.RawAmount != "100000000000000000" || quote.TokenIn.Amount != "0.1" {
		t.Fatalf("token in mismatch: %+v", quote.TokenIn)
	}
	if quote.TokenOut.Amount != "200" {
		t.Fatalf("token out mismatch: %+v", quote.TokenOut)
	}
	if quote.PriceImpactPct != 0.42 || quote.ImpactSeverity != "low" {
		t.Fatalf("impact mismatch: %v %s", quote.PriceImpactPct, quote.ImpactSeverity)
	}
	if quote.Pool.Fee != 500 || quote.Pool.Liquidity != "42" {
		t.Fatalf("pool mismatch: %+v", quote.Pool)
	}
	want := []string{common.Address{}.Hex(), svc.cfg.Network.Tokens.Stable.Hex()}
	if len(quote.Route) != 2 || quote.Route[0] != want[0] || quote.Route[1] != want[1] {
		t.Fatalf("route mismatch: got %v want %v", quote.Route, want)
	}
}

func TestServiceRoute(t *testing.T) {
	svc := newTestService(t, stubSelector{}, stubQuoter{})
	route, err := svc.Route(context.Background(), model.SwapRequest{TokenIn: "ETH", TokenOut: "USDC", Amount: "0.1"}, RouteOptions{})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if route.AmountOutMin != "199000000" {
		t.Fatalf("amount out min mismatch: %s", route.AmountOutMin)
	}
	if route.ValueToSend != "100000000000000000" {
		t.Fatalf("native input must set value: %s", route.ValueToSend)
	}
	if route.Deadline != 1_700_000_000+20*60 {
		t.Fatalf("deadline mismatch: %d", route.Deadline)
	}
	if route.TargetContract != svc.Network().Contracts.UniversalRouter.Hex() {
		t.Fatalf("target mismatch: %s", route.TargetContract)
	}
	data, err := hexutil.Decode(route.Calldata)
	if err != nil || hexutil.Encode(data[:4]) != "0x3593564c" {
		t.Fatalf("calldata mismatch: %s", route.Calldata)
	}

	custom := uint32(300)
	route, err = svc.Route(context.Background(), model.SwapRequest{TokenIn: "ETH", TokenOut: "USDC", Amount: "0.1"}, RouteOptions{SlippageBps: &custom})
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if route.AmountOutMin != "194000000" || route.SlippageTolerancePct != 3 {
		t.Fatalf("custom slippage mismatch: %s %v", route.AmountOutMin, route.SlippageTolerancePct)
	}
}

func TestServiceSurfacesQuoteFailures(t *testing.T) {
	svc := newTestService(t, stubSelector{fallback: true}, stubQuoter{err: fmt.Errorf("%w: execution reverted", model.ErrQuoteFailure)})
	_, err := svc.Route(context.Background(), model.SwapRequest{TokenIn: "WETH", TokenOut: "USDC", Amount: "1"}, RouteOptions{})
	if !errors.Is(err, model.ErrQuoteFailure) {
		t.Fatalf("expected quote failure, got %v", err)
	}

	if _, err := svc.Quote(context.Background(), model.SwapRequest{TokenIn: "USDC", TokenOut: "USDC", Amount: "1"}); !errors.Is(err, model.ErrQuoteFailure) {
		t.Fatalf("expected quote failure for identical tokens, got %v", err)
	}
	if _, err := svc.Quote(context.Background(), model.SwapRequest{TokenIn: "DOGE", TokenOut: "USDC", Amount: "1"}); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected unknown token, got %v", err)
	}
}

func TestResolveToken(t *testing.T) {
	svc := newTestService(t, stubSelector{}, stubQuoter{})
	params := svc.Network()
	cases := map[string]common.Address{
		"eth":  {},
		"WETH": params.Tokens.Wrapped,
		"usdc": params.Tokens.Stable,
		"0x1111111111111111111111111111111111111111": common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
	for ref, want := range cases {
		got, err := svc.ResolveToken(ref)
		if err != nil {
			t.Fatalf("resolve %s: %v", ref, err)
		}
		if got != want {
			t.Fatalf("resolve %s: got %s", ref, got.Hex())
		}
	}
}

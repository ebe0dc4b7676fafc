package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"swapPay/internal/chain"
	"swapPay/internal/dex"
	"swapPay/internal/metrics"
	"swapPay/internal/model"
	"swapPay/internal/network"
)

// ErrUnknownToken is returned for token references that are neither a known
// symbol nor a hex address.
var ErrUnknownToken = errors.New("unknown token")

// Config controls route defaults.
type Config struct {
	Network     network.Params
	SlippageBps uint32
	Deadline    time.Duration
}

// RouteOptions overrides the configured defaults for one route.
type RouteOptions struct {
	SlippageBps *uint32
	Deadline    time.Duration
}

type poolSelector interface {
	Select(ctx context.Context, tokenIn, tokenOut common.Address) (dex.Selection, error)
}

type quoter interface {
	Quote(ctx context.Context, sel dex.Selection, tokenIn, tokenOut common.Address, amount string) (dex.QuoteResult, error)
}

type impactCalculator interface {
	Calculate(ctx context.Context, q dex.QuoteResult) float64
}

// Service runs the pool selection, quote, impact and encoding pipeline.
type Service struct {
	cfg      Config
	selector poolSelector
	quoter   quoter
	impact   impactCalculator
	now      func() time.Time
	logger   *zap.Logger
}

// NewService wires the dex components against a chain caller.
func NewService(caller chain.Caller, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := dex.NewTokenResolver(caller, nil, logger)
	tokens.SeedNetwork(cfg.Network)
	state := dex.NewStateReader(caller, cfg.Network.Contracts.StateView)
	return newService(
		cfg,
		dex.NewPoolSelector(state, cfg.Network.FeeTiers, cfg.Network.Default, logger),
		dex.NewQuoteEngine(caller, cfg.Network.Contracts.Quoter, tokens, logger),
		dex.NewImpactCalculator(state, logger),
		logger,
	)
}

func newService(cfg Config, selector poolSelector, q quoter, impact impactCalculator, logger *zap.Logger) *Service {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 20 * time.Minute
	}
	return &Service{
		cfg:      cfg,
		selector: selector,
		quoter:   q,
		impact:   impact,
		now:      time.Now,
		logger:   logger,
	}
}

// Network returns the network the service quotes on.
func (s *Service) Network() network.Params {
	return s.cfg.Network
}

// ResolveToken maps a symbol (ETH, WETH, USDC) or hex address to a currency.
func (s *Service) ResolveToken(ref string) (common.Address, error) {
	ref = strings.TrimSpace(ref)
	switch strings.ToUpper(ref) {
	case "ETH", "NATIVE":
		return common.Address{}, nil
	case "WETH":
		return s.cfg.Network.Tokens.Wrapped, nil
	case "USDC":
		return s.cfg.Network.Tokens.Stable, nil
	}
	if common.IsHexAddress(ref) {
		return common.HexToAddress(ref), nil
	}
	return common.Address{}, fmt.Errorf("%w: %q", ErrUnknownToken, ref)
}

// Quote prices an exact-input swap without encoding it.
func (s *Service) Quote(ctx context.Context, req model.SwapRequest) (model.Quote, error) {
	_, quote, err := s.quote(ctx, req)
	return quote, err
}

// Route prices a swap and encodes the router call for it.
func (s *Service) Route(ctx context.Context, req model.SwapRequest, opts RouteOptions) (model.Route, error) {
	res, quote, err := s.quote(ctx, req)
	if err != nil {
		return model.Route{}, err
	}

	slippage := s.cfg.SlippageBps
	if opts.SlippageBps != nil {
		slippage = *opts.SlippageBps
	}
	ttl := s.cfg.Deadline
	if opts.Deadline > 0 {
		ttl = opts.Deadline
	}
	now := s.now()

	enc, err := dex.EncodeSwap(dex.SwapCall{
		Key:         res.Selection.Key,
		ZeroForOne:  res.Selection.ZeroForOne,
		AmountIn:    res.AmountIn,
		AmountOut:   res.AmountOut,
		SlippageBps: slippage,
		Deadline:    now.Add(ttl),
	}, now)
	if err != nil {
		return model.Route{}, err
	}
	metrics.RoutesEncoded.Inc()

	return model.Route{
		Quote:                quote,
		Calldata:             hexutil.Encode(enc.Calldata),
		TargetContract:       s.cfg.Network.Contracts.UniversalRouter.Hex(),
		ValueToSend:          enc.Value.String(),
		SlippageBps:          slippage,
		SlippageTolerancePct: float64(slippage) / 100,
		AmountOutMin:         enc.AmountOutMin.String(),
		Deadline:             enc.Deadline,
	}, nil
}

func (s *Service) quote(ctx context.Context, req model.SwapRequest) (dex.QuoteResult, model.Quote, error) {
	start := time.Now()
	res, quote, err := s.doQuote(ctx, req)
	metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("error").Inc()
		return res, quote, err
	}
	metrics.QuoteRequests.WithLabelValues("ok").Inc()
	return res, quote, nil
}

func (s *Service) doQuote(ctx context.Context, req model.SwapRequest) (dex.QuoteResult, model.Quote, error) {
	tokenIn, err := s.ResolveToken(req.TokenIn)
	if err != nil {
		return dex.QuoteResult{}, model.Quote{}, err
	}
	tokenOut, err := s.ResolveToken(req.TokenOut)
	if err != nil {
		return dex.QuoteResult{}, model.Quote{}, err
	}
	if tokenIn == tokenOut {
		return dex.QuoteResult{}, model.Quote{}, fmt.Errorf("%w: token in and out are the same", model.ErrQuoteFailure)
	}

	sel, err := s.selector.Select(ctx, tokenIn, tokenOut)
	if err != nil {
		return dex.QuoteResult{}, model.Quote{}, fmt.Errorf("%w: select pool: %v", model.ErrQuoteFailure, err)
	}
	if sel.Fallback {
		metrics.PoolFallbacks.Inc()
	}
	metrics.SelectedTier.WithLabelValues(strconv.FormatUint(uint64(sel.Tier.Fee), 10)).Inc()

	res, err := s.quoter.Quote(ctx, sel, tokenIn, tokenOut, req.Amount)
	if err != nil {
		return dex.QuoteResult{}, model.Quote{}, err
	}

	impact := s.impact.Calculate(ctx, res)
	s.logger.Debug("quote",
		zap.String("token_in", res.TokenIn.Symbol),
		zap.String("token_out", res.TokenOut.Symbol),
		zap.String("amount_in", res.AmountIn.String()),
		zap.String("amount_out", res.AmountOut.String()),
		zap.Uint32("fee", sel.Tier.Fee),
		zap.Float64("impact_pct", impact),
	)

	return res, model.Quote{
		TokenIn:        tokenAmount(res.TokenIn, res.AmountIn),
		TokenOut:       tokenAmount(res.TokenOut, res.AmountOut),
		PriceImpactPct: impact,
		ImpactSeverity: dex.ImpactSeverity(impact),
		Route:          []string{res.TokenIn.Address, res.TokenOut.Address},
		EstimatedGas:   res.GasEstimate,
		Pool: model.PoolSelection{
			PoolID:      sel.ID.Hex(),
			Tier:        sel.Tier.Name,
			Fee:         sel.Tier.Fee,
			TickSpacing: sel.Tier.TickSpacing,
			Liquidity:   sel.Liquidity.String(),
			Fallback:    sel.Fallback,
		},
		ZeroForOne: sel.ZeroForOne,
		Timestamp:  s.now().UTC(),
	}, nil
}

func tokenAmount(meta model.TokenMeta, raw *big.Int) model.TokenAmount {
	return model.TokenAmount{
		Address:   meta.Address,
		Symbol:    meta.Symbol,
		Decimals:  meta.Decimals,
		Amount:    dex.FormatUnits(raw, meta.Decimals),
		RawAmount: raw.String(),
	}
}

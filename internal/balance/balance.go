package balance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swapPay/internal/chain"
	"swapPay/internal/dex"
	"swapPay/internal/model"
	"swapPay/internal/network"
)

// NativeReader reads native balances and ERC20 state.
type NativeReader interface {
	chain.Caller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// PriceSource provides the native asset price in USD.
type PriceSource interface {
	EthPriceUSD(ctx context.Context) float64
}

// Reader fetches the balances a payment can be funded from.
type Reader struct {
	client     NativeReader
	params     network.Params
	prices     PriceSource
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewReader(client NativeReader, params network.Params, prices PriceSource, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		client:     client,
		params:     params,
		prices:     prices,
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
		logger:     logger,
	}
}

// Fetch reads native, wrapped and stable balances of owner in parallel.
func (r *Reader) Fetch(ctx context.Context, owner common.Address) (model.WalletBalances, error) {
	var native, wrapped, stable *big.Int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return chain.WithRetry(gctx, r.maxRetries, r.backoff, func(ctx context.Context) error {
			v, err := r.client.BalanceAt(ctx, owner, nil)
			if err != nil {
				return fmt.Errorf("native balance: %w", err)
			}
			native = v
			return nil
		})
	})
	g.Go(func() error {
		return chain.WithRetry(gctx, r.maxRetries, r.backoff, func(ctx context.Context) error {
			v, err := BalanceOf(ctx, r.client, r.params.Tokens.Wrapped, owner)
			if err != nil {
				return fmt.Errorf("wrapped balance: %w", err)
			}
			wrapped = v
			return nil
		})
	})
	g.Go(func() error {
		return chain.WithRetry(gctx, r.maxRetries, r.backoff, func(ctx context.Context) error {
			v, err := BalanceOf(ctx, r.client, r.params.Tokens.Stable, owner)
			if err != nil {
				return fmt.Errorf("stable balance: %w", err)
			}
			stable = v
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return model.WalletBalances{}, err
	}

	price := 0.0
	if r.prices != nil {
		price = r.prices.EthPriceUSD(ctx)
	}

	out := model.WalletBalances{
		Owner:       owner.Hex(),
		Native:      tokenBalance("ETH", common.Address{}, 18, native),
		Wrapped:     tokenBalance("WETH", r.params.Tokens.Wrapped, 18, wrapped),
		Stable:      tokenBalance("USDC", r.params.Tokens.Stable, r.params.Tokens.StableDecimals, stable),
		EthPriceUSD: price,
		FetchedAt:   time.Now().UTC(),
	}
	out.TotalUSD = dex.ToFloat(stable, r.params.Tokens.StableDecimals) +
		(dex.ToFloat(native, 18)+dex.ToFloat(wrapped, 18))*price

	r.logger.Debug("balances fetched",
		zap.String("owner", out.Owner),
		zap.String("eth", out.Native.BalanceFormatted),
		zap.String("weth", out.Wrapped.BalanceFormatted),
		zap.String("usdc", out.Stable.BalanceFormatted),
		zap.Float64("total_usd", out.TotalUSD),
	)
	return out, nil
}

// BalanceOf reads an ERC20 balance at the latest block.
func BalanceOf(ctx context.Context, caller chain.Caller, token common.Address, owner common.Address) (*big.Int, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	erc20, err := dex.ERC20ABI()
	if err != nil {
		return nil, err
	}

	data, err := erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}

	msg := ethereum.CallMsg{To: &token, Data: data}
	resp, err := caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf: %w", err)
	}

	values, err := erc20.Unpack("balanceOf", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("balanceOf empty")
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf type %T", values[0])
	}
	return value, nil
}

func tokenBalance(symbol string, addr common.Address, decimals uint8, raw *big.Int) model.TokenBalance {
	if raw == nil {
		raw = new(big.Int)
	}
	return model.TokenBalance{
		Symbol:           symbol,
		Address:          addr.Hex(),
		Decimals:         decimals,
		BalanceRaw:       raw.String(),
		BalanceFormatted: dex.FormatUnits(raw, decimals),
	}
}

package session

import (
	"fmt"
	"math/big"

	"swapPay/internal/dex"
	"swapPay/internal/model"
)

// DefaultGasReserveWei is kept back from the native balance for gas.
var DefaultGasReserveWei = big.NewInt(1_000_000_000_000_000) // 0.001 ETH

// DefaultSwapBufferBps oversizes a funding swap so the output still covers
// the payment after slippage and price drift.
const DefaultSwapBufferBps = 200

// Funding source symbols.
const (
	SourceStable  = "USDC"
	SourceWrapped = "WETH"
	SourceNative  = "ETH"
)

// Funding is the outcome of the funding decision for a payment.
type Funding struct {
	NeedsSwap bool
	// Source is the asset the payment is funded from.
	Source string
	// SwapAmount is the human amount of Source to swap into the stable asset.
	SwapAmount string
	// AmountRaw is the payment in stable base units.
	AmountRaw *big.Int
}

// FundingPolicy holds the parameters of DecideFunding.
type FundingPolicy struct {
	StableDecimals uint8
	GasReserveWei  *big.Int
	SwapBufferBps  uint32
}

// DecideFunding picks the first asset that covers amount (a stable-asset
// decimal string): the stable balance itself, then wrapped ether, then native
// ether minus the gas reserve.
func DecideFunding(bal model.WalletBalances, amount string, policy FundingPolicy) (Funding, error) {
	amountRaw, err := dex.ParseUnits(amount, policy.StableDecimals)
	if err != nil {
		return Funding{}, fmt.Errorf("%w: %v", model.ErrAmountRequired, err)
	}
	if amountRaw.Sign() == 0 {
		return Funding{}, fmt.Errorf("%w: amount must be positive", model.ErrAmountRequired)
	}

	stable := rawBalance(bal.Stable)
	if stable.Cmp(amountRaw) >= 0 {
		return Funding{Source: SourceStable, AmountRaw: amountRaw}, nil
	}

	need, ok := weiNeeded(amountRaw, policy.StableDecimals, bal.EthPriceUSD)
	if !ok {
		return Funding{}, fmt.Errorf("%w: no ether price to value %s %s", model.ErrInsufficientFunds, amount, SourceStable)
	}
	buffered := withBuffer(need, policy.SwapBufferBps)

	wrapped := rawBalance(bal.Wrapped)
	if wrapped.Cmp(need) >= 0 {
		return Funding{
			NeedsSwap:  true,
			Source:     SourceWrapped,
			SwapAmount: dex.FormatUnits(minInt(buffered, wrapped), 18),
			AmountRaw:  amountRaw,
		}, nil
	}

	reserve := policy.GasReserveWei
	if reserve == nil {
		reserve = DefaultGasReserveWei
	}
	spendable := new(big.Int).Sub(rawBalance(bal.Native), reserve)
	if spendable.Sign() > 0 && spendable.Cmp(need) >= 0 {
		return Funding{
			NeedsSwap:  true,
			Source:     SourceNative,
			SwapAmount: dex.FormatUnits(minInt(buffered, spendable), 18),
			AmountRaw:  amountRaw,
		}, nil
	}

	return Funding{}, fmt.Errorf("%w: %s %s exceeds stable %s, wrapped %s and native %s",
		model.ErrInsufficientFunds, amount, SourceStable,
		bal.Stable.BalanceFormatted, bal.Wrapped.BalanceFormatted, bal.Native.BalanceFormatted)
}

// weiNeeded converts a stable amount to wei at priceUSD per ether, rounding up.
func weiNeeded(amountRaw *big.Int, stableDecimals uint8, priceUSD float64) (*big.Int, bool) {
	if priceUSD <= 0 {
		return nil, false
	}
	price := new(big.Rat)
	if price.SetFloat64(priceUSD) == nil {
		return nil, false
	}
	// wei = amountRaw * 10^(18 - stableDecimals) / price
	eth := new(big.Rat).SetInt(amountRaw)
	eth.Mul(eth, new(big.Rat).SetInt(pow10(18)))
	eth.Quo(eth, new(big.Rat).SetInt(pow10(int64(stableDecimals))))
	eth.Quo(eth, price)
	return ceilRat(eth), true
}

func withBuffer(wei *big.Int, bufferBps uint32) *big.Int {
	out := new(big.Int).Mul(wei, big.NewInt(int64(10_000+bufferBps)))
	return out.Div(out, big.NewInt(10_000))
}

func ceilRat(r *big.Rat) *big.Int {
	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

func rawBalance(b model.TokenBalance) *big.Int {
	v, ok := new(big.Int).SetString(b.BalanceRaw, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

func minInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

func pow10(n int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(n), nil)
}

package model

import "time"

// TokenBalance is a wallet balance for one asset.
type TokenBalance struct {
	Symbol           string `json:"symbol"`
	Address          string `json:"address"`
	Decimals         uint8  `json:"decimals"`
	BalanceRaw       string `json:"balance_raw"`
	BalanceFormatted string `json:"balance_formatted"`
}

// WalletBalances is a snapshot of the assets a payment can be funded from.
type WalletBalances struct {
	Owner       string       `json:"owner"`
	Native      TokenBalance `json:"native"`
	Wrapped     TokenBalance `json:"wrapped"`
	Stable      TokenBalance `json:"stable"`
	EthPriceUSD float64      `json:"eth_price_usd"`
	TotalUSD    float64      `json:"total_usd"`
	FetchedAt   time.Time    `json:"fetched_at"`
}

package model

import "time"

// TokenAmount is an amount of a token in both raw and human units.
type TokenAmount struct {
	Address   string `json:"address"`
	Symbol    string `json:"symbol"`
	Decimals  uint8  `json:"decimals"`
	Amount    string `json:"amount"`
	RawAmount string `json:"raw_amount"`
}

// PoolSelection records which fee tier was chosen and why.
type PoolSelection struct {
	PoolID      string `json:"pool_id"`
	Tier        string `json:"tier"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Liquidity   string `json:"liquidity"`
	Fallback    bool   `json:"fallback"`
}

// Quote is an immutable pricing result for an exact-input swap.
type Quote struct {
	TokenIn        TokenAmount   `json:"token_in"`
	TokenOut       TokenAmount   `json:"token_out"`
	PriceImpactPct float64       `json:"price_impact_pct"`
	ImpactSeverity string        `json:"impact_severity"`
	Route          []string      `json:"route"`
	EstimatedGas   uint64        `json:"estimated_gas"`
	Pool           PoolSelection `json:"pool"`
	ZeroForOne     bool          `json:"zero_for_one"`
	Timestamp      time.Time     `json:"timestamp"`
}

// Route is a quote plus everything needed to submit it to the router.
type Route struct {
	Quote
	Calldata             string  `json:"calldata"`
	TargetContract       string  `json:"target_contract"`
	ValueToSend          string  `json:"value_to_send"`
	SlippageBps          uint32  `json:"slippage_bps"`
	SlippageTolerancePct float64 `json:"slippage_tolerance_pct"`
	AmountOutMin         string  `json:"amount_out_min"`
	Deadline             int64   `json:"deadline"`
}

// SwapRequest is the structured form of a swap instruction.
type SwapRequest struct {
	TokenIn  string `json:"token_in"`
	TokenOut string `json:"token_out"`
	Amount   string `json:"amount"`
}

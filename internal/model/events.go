package model

// SwapEvent is a decoded PoolManager Swap log.
type SwapEvent struct {
	TxHash       string `json:"tx_hash"`
	LogIndex     uint64 `json:"log_index"`
	PoolID       string `json:"pool_id"`
	Sender       string `json:"sender"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
	Fee          uint32 `json:"fee"`
}

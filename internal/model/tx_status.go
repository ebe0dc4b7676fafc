package model

import "time"

// TxState is the observed state of a submitted transaction.
type TxState string

const (
	TxPending   TxState = "pending"
	TxConfirmed TxState = "confirmed"
	TxFailed    TxState = "failed"
	TxNotFound  TxState = "not_found"
	TxTimeout   TxState = "timeout"
)

// Terminal reports whether polling can stop.
func (s TxState) Terminal() bool {
	return s == TxConfirmed || s == TxFailed || s == TxTimeout
}

// TxStatus is one observation of a transaction.
type TxStatus struct {
	Hash          string      `json:"hash"`
	State         TxState     `json:"state"`
	BlockNumber   uint64      `json:"block_number,omitempty"`
	Confirmations uint64      `json:"confirmations,omitempty"`
	GasUsed       uint64      `json:"gas_used,omitempty"`
	Swaps         []SwapEvent `json:"swaps,omitempty"`
	CheckedAt     time.Time   `json:"checked_at"`
}

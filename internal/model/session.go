package model

import "time"

// SessionState is a payment session lifecycle state.
type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateScanning        SessionState = "scanning"
	StatePreparing       SessionState = "preparing"
	StateAwaitingConfirm SessionState = "awaiting_confirm"
	StateExecuting       SessionState = "executing"
	StateSuccess         SessionState = "success"
	StateFailed          SessionState = "failed"
	StateCancelled       SessionState = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionState) Terminal() bool {
	switch s {
	case StateSuccess, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// SessionKind distinguishes scanned payments from direct swap requests.
type SessionKind string

const (
	KindPayment SessionKind = "payment"
	KindSwap    SessionKind = "swap"
)

// TransferCall is an ERC20 transfer the wallet must sign.
type TransferCall struct {
	Token     string `json:"token"`
	To        string `json:"to"`
	AmountRaw string `json:"amount_raw"`
	Calldata  string `json:"calldata"`
}

// ExecutionPlan lists the transactions a session needs signed, in order.
type ExecutionPlan struct {
	Swap     *Route        `json:"swap,omitempty"`
	Transfer *TransferCall `json:"transfer,omitempty"`
}

// PaymentSession is one payment or swap attempt.
type PaymentSession struct {
	ID             string          `json:"id"`
	Kind           SessionKind     `json:"kind"`
	State          SessionState    `json:"state"`
	UserAddress    string          `json:"user_address"`
	MerchantWallet string          `json:"merchant_wallet,omitempty"`
	MerchantName   string          `json:"merchant_name,omitempty"`
	Amount         string          `json:"amount,omitempty"`
	NeedsSwap      bool            `json:"needs_swap"`
	SwapFromToken  string          `json:"swap_from_token,omitempty"`
	SwapRequest    *SwapRequest    `json:"swap_request,omitempty"`
	Balances       *WalletBalances `json:"balances,omitempty"`
	Plan           *ExecutionPlan  `json:"plan,omitempty"`
	TxHash         string          `json:"tx_hash,omitempty"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// SessionEvent is one journaled state transition.
type SessionEvent struct {
	SessionID string       `json:"session_id"`
	From      SessionState `json:"from"`
	To        SessionState `json:"to"`
	Reason    string       `json:"reason,omitempty"`
	TxHash    string       `json:"tx_hash,omitempty"`
	At        time.Time    `json:"at"`
}

package model

import "errors"

var (
	// ErrQuoteFailure means the swap simulation reverted or returned garbage.
	ErrQuoteFailure = errors.New("quote failed")
	// ErrEncodingFailure means calldata could not be built from the given inputs.
	ErrEncodingFailure   = errors.New("calldata encoding failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrSubmissionFailure covers broadcast, gas and relayer errors.
	ErrSubmissionFailure = errors.New("transaction submission failed")
	// ErrOracleDegraded is logged when every price source failed. It is never returned to callers.
	ErrOracleDegraded  = errors.New("price oracle degraded")
	ErrMalformedIntent = errors.New("no valid recipient found")

	ErrTerminalState     = errors.New("session already terminal")
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrCancelNotAllowed  = errors.New("cancel not allowed after submission")
	ErrAmountRequired    = errors.New("payment amount required")
	ErrSessionNotFound   = errors.New("session not found")
)

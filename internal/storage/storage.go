package storage

import (
	"context"

	"swapPay/internal/model"
)

// Journal records session transitions and the latest snapshot of each
// session.
type Journal interface {
	Record(ctx context.Context, session model.PaymentSession, event model.SessionEvent) error
}

// Archive reads back sessions that are no longer held in memory.
type Archive interface {
	LoadSession(ctx context.Context, id string) (model.PaymentSession, bool, error)
	LoadEvents(ctx context.Context, id string) ([]model.SessionEvent, error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, model.PaymentSession, model.SessionEvent) error { return nil }

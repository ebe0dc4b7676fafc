package txstatus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapPay/internal/metrics"
	"swapPay/internal/model"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultTimeout  = 5 * time.Minute
)

// Reader is the chain surface the tracker polls.
type Reader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// ReceiptDecoder extracts swap events from a mined receipt.
type ReceiptDecoder interface {
	DecodeReceipt(receipt *types.Receipt) ([]model.SwapEvent, error)
}

// Config controls polling.
type Config struct {
	Interval         time.Duration
	Timeout          time.Duration
	MinConfirmations uint64
}

// Tracker reports the state of submitted transactions. It does not own
// session lifecycle; callers decide what an observed state means.
type Tracker struct {
	client  Reader
	decoder ReceiptDecoder
	cfg     Config
	logger  *zap.Logger
}

func NewTracker(client Reader, decoder ReceiptDecoder, cfg Config, logger *zap.Logger) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MinConfirmations == 0 {
		cfg.MinConfirmations = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{client: client, decoder: decoder, cfg: cfg, logger: logger}
}

// Status performs one observation of hash.
func (t *Tracker) Status(ctx context.Context, hash common.Hash) (model.TxStatus, error) {
	status := model.TxStatus{Hash: hash.Hex(), CheckedAt: time.Now().UTC()}

	receipt, err := t.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			return status, fmt.Errorf("receipt %s: %w", hash.Hex(), err)
		}
		_, pending, err := t.client.TransactionByHash(ctx, hash)
		switch {
		case errors.Is(err, ethereum.NotFound):
			status.State = model.TxNotFound
		case err != nil:
			return status, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
		case pending:
			status.State = model.TxPending
		default:
			// Mined but the receipt is not indexed yet.
			status.State = model.TxPending
		}
		return status, nil
	}

	if receipt.BlockNumber != nil {
		status.BlockNumber = receipt.BlockNumber.Uint64()
	}
	status.GasUsed = receipt.GasUsed

	latest, err := t.client.LatestBlockNumber(ctx)
	if err != nil {
		return status, fmt.Errorf("latest block: %w", err)
	}
	if latest >= status.BlockNumber {
		status.Confirmations = latest - status.BlockNumber + 1
	}

	if receipt.Status == types.ReceiptStatusFailed {
		status.State = model.TxFailed
		return status, nil
	}
	if status.Confirmations < t.cfg.MinConfirmations {
		status.State = model.TxPending
		return status, nil
	}

	status.State = model.TxConfirmed
	if t.decoder != nil {
		swaps, err := t.decoder.DecodeReceipt(receipt)
		if err != nil {
			t.logger.Warn("swap log decode failed", zap.String("tx", hash.Hex()), zap.Error(err))
		}
		status.Swaps = swaps
	}
	return status, nil
}

// Track polls until the transaction is confirmed or failed, or until the
// configured timeout elapses, in which case the state is TxTimeout.
func (t *Tracker) Track(ctx context.Context, hash common.Hash) (model.TxStatus, error) {
	var last model.TxStatus
	for status := range t.Watch(ctx, hash) {
		last = status
	}
	if last.State == "" {
		return last, ctx.Err()
	}
	if !last.State.Terminal() && ctx.Err() != nil {
		return last, ctx.Err()
	}
	return last, nil
}

// Watch streams every state change of hash. The channel closes after a
// terminal state, the timeout, or ctx cancellation.
func (t *Tracker) Watch(ctx context.Context, hash common.Hash) <-chan model.TxStatus {
	out := make(chan model.TxStatus, 1)
	go func() {
		defer close(out)

		// Polls run under the deadline too, so a hung RPC call cannot
		// outlive the timeout.
		pollCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
		ticker := time.NewTicker(t.cfg.Interval)
		defer ticker.Stop()

		var lastState model.TxState
		emit := func(status model.TxStatus) bool {
			if status.State == lastState {
				return true
			}
			lastState = status.State
			select {
			case out <- status:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			status, err := t.Status(pollCtx, hash)
			if err != nil {
				t.logger.Debug("status poll failed", zap.String("tx", hash.Hex()), zap.Error(err))
			} else {
				if !emit(status) {
					return
				}
				if status.State.Terminal() {
					metrics.TxOutcomes.WithLabelValues(string(status.State)).Inc()
					return
				}
			}

			select {
			case <-pollCtx.Done():
				if ctx.Err() != nil {
					return
				}
				t.logger.Warn("transaction tracking timed out", zap.String("tx", hash.Hex()), zap.Duration("timeout", t.cfg.Timeout))
				metrics.TxOutcomes.WithLabelValues(string(model.TxTimeout)).Inc()
				emit(model.TxStatus{Hash: hash.Hex(), State: model.TxTimeout, CheckedAt: time.Now().UTC()})
				return
			case <-ticker.C:
			}
		}
	}()
	return out
}

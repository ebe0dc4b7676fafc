package relay

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"swapPay/internal/chain"
	"swapPay/internal/metrics"
	"swapPay/internal/model"
	"swapPay/internal/network"
)

var (
	errEmptyBatch      = errors.New("no transactions to submit")
	errWrongChain      = errors.New("transaction signed for another chain")
	errTargetForbidden = errors.New("transaction target not allowed")
	errWrongSigner     = errors.New("transaction not signed by session owner")
)

// Relay broadcasts transactions the wallet already signed. It never holds
// keys; it only checks that each transaction is for this chain, goes to a
// known contract and, when an owner is given, was signed by that owner.
type Relay struct {
	sender  chain.Sender
	chainID *big.Int
	signer  types.Signer
	allowed map[common.Address]struct{}
	logger  *zap.Logger
}

func New(sender chain.Sender, params network.Params, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	chainID := new(big.Int).SetUint64(params.ChainID)
	r := &Relay{
		sender:  sender,
		chainID: chainID,
		signer:  types.LatestSignerForChainID(chainID),
		allowed: make(map[common.Address]struct{}),
		logger:  logger,
	}
	r.Allow(
		params.Contracts.UniversalRouter,
		params.Contracts.Permit2,
		params.Tokens.Wrapped,
		params.Tokens.Stable,
	)
	return r
}

// Allow adds contracts transactions may target.
func (r *Relay) Allow(addrs ...common.Address) {
	for _, addr := range addrs {
		if addr != (common.Address{}) {
			r.allowed[addr] = struct{}{}
		}
	}
}

// Decode parses a hex encoded signed transaction and validates it.
func (r *Relay) Decode(raw string, owner common.Address) (*types.Transaction, error) {
	data, err := hexutil.Decode(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode raw tx: %w", err)
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal raw tx: %w", err)
	}
	if tx.ChainId().Cmp(r.chainID) != 0 {
		return nil, fmt.Errorf("%w: got %s want %s", errWrongChain, tx.ChainId(), r.chainID)
	}
	if tx.To() == nil {
		return nil, fmt.Errorf("%w: contract creation", errTargetForbidden)
	}
	if _, ok := r.allowed[*tx.To()]; !ok {
		return nil, fmt.Errorf("%w: %s", errTargetForbidden, tx.To().Hex())
	}
	if owner != (common.Address{}) {
		from, err := types.Sender(r.signer, tx)
		if err != nil {
			return nil, fmt.Errorf("recover signer: %w", err)
		}
		if from != owner {
			return nil, fmt.Errorf("%w: %s", errWrongSigner, from.Hex())
		}
	}
	return tx, nil
}

// Submit validates every transaction before broadcasting any of them, then
// sends them in order. The hash of the last transaction is returned since it
// is the one that settles the payment.
func (r *Relay) Submit(ctx context.Context, owner common.Address, rawTxs []string) (common.Hash, error) {
	if len(rawTxs) == 0 {
		return common.Hash{}, fmt.Errorf("%w: %v", model.ErrSubmissionFailure, errEmptyBatch)
	}

	txs := make([]*types.Transaction, 0, len(rawTxs))
	for i, raw := range rawTxs {
		tx, err := r.Decode(raw, owner)
		if err != nil {
			metrics.TxSubmitted.WithLabelValues("rejected").Inc()
			return common.Hash{}, fmt.Errorf("%w: tx %d: %v", model.ErrSubmissionFailure, i, err)
		}
		txs = append(txs, tx)
	}

	broadcast := make([]string, 0, len(txs))
	for i, tx := range txs {
		if err := r.sender.SendTransaction(ctx, tx); err != nil {
			metrics.TxSubmitted.WithLabelValues("error").Inc()
			r.logger.Warn("broadcast failed",
				zap.Int("index", i),
				zap.String("tx", tx.Hash().Hex()),
				zap.Error(err),
			)
			if len(broadcast) > 0 {
				// Earlier legs are already on chain and must be reconciled by hand.
				return common.Hash{}, fmt.Errorf("%w: send tx %d: %v (already broadcast: %s)",
					model.ErrSubmissionFailure, i, err, strings.Join(broadcast, ", "))
			}
			return common.Hash{}, fmt.Errorf("%w: send tx %d: %v", model.ErrSubmissionFailure, i, err)
		}
		metrics.TxSubmitted.WithLabelValues("ok").Inc()
		r.logger.Info("transaction broadcast",
			zap.String("tx", tx.Hash().Hex()),
			zap.String("to", tx.To().Hex()),
			zap.Uint64("nonce", tx.Nonce()),
		)
		broadcast = append(broadcast, tx.Hash().Hex())
	}
	return txs[len(txs)-1].Hash(), nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"swapPay/internal/dex"
	"swapPay/internal/intent"
	"swapPay/internal/metrics"
	"swapPay/internal/model"
	"swapPay/internal/network"
	"swapPay/internal/storage"
	"swapPay/internal/swap"
)

// BalanceReader fetches wallet balances.
type BalanceReader interface {
	Fetch(ctx context.Context, owner common.Address) (model.WalletBalances, error)
}

// Router prices and encodes swaps.
type Router interface {
	Route(ctx context.Context, req model.SwapRequest, opts swap.RouteOptions) (model.Route, error)
}

// Executor broadcasts transactions signed by the wallet.
type Executor interface {
	Submit(ctx context.Context, owner common.Address, rawTxs []string) (common.Hash, error)
}

// Tracker follows a submitted transaction to a terminal state.
type Tracker interface {
	Track(ctx context.Context, hash common.Hash) (model.TxStatus, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Network  network.Params
	Balances BalanceReader
	Router   Router
	Executor Executor
	Tracker  Tracker
	Journal  storage.Journal
	Funding  FundingPolicy
	Logger   *zap.Logger
	// Idle is how long a session may sit untouched before Reap cancels it.
	Idle time.Duration
}

// Confirmation is the confirm signal: the transactions of the execution plan
// signed by the user's wallet, in plan order.
type Confirmation struct {
	SignedTxs []string `json:"signed_txs"`
}

var errBusy = fmt.Errorf("%w: another operation is in progress", model.ErrInvalidTransition)

// Session drives one payment or swap attempt. Signals may arrive from
// different goroutines; state is guarded by mu and network I/O runs outside
// it, so Cancel is honoured while a balance read or quote is in flight.
type Session struct {
	mu    sync.Mutex
	state model.PaymentSession
	busy  bool
	deps  *Deps
	now   func() time.Time
	// onTerminal is called once, with mu held, when the session ends.
	onTerminal func(id string)
}

func newSession(id string, owner common.Address, deps *Deps, now func() time.Time) *Session {
	at := now().UTC()
	return &Session{
		state: model.PaymentSession{
			ID:          id,
			Kind:        model.KindPayment,
			State:       model.StateIdle,
			UserAddress: owner.Hex(),
			CreatedAt:   at,
			UpdatedAt:   at,
		},
		deps: deps,
		now:  now,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.state.ID
}

// Snapshot returns a copy of the current session.
func (s *Session) Snapshot() model.PaymentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartScan moves an idle session to scanning.
func (s *Session) StartScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(model.StateIdle); err != nil {
		return err
	}
	s.transition(model.StateScanning, "scan started")
	return nil
}

// SubmitScan parses a scanned code. An unrecognised code leaves the session
// scanning and returns ErrMalformedIntent.
func (s *Session) SubmitScan(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(model.StateScanning); err != nil {
		return err
	}

	in, ok := intent.Parse(code).Intent()
	if !ok {
		return model.ErrMalformedIntent
	}
	if in.ChainID != 0 && in.ChainID != s.deps.Network.ChainID {
		return fmt.Errorf("%w: code is for chain %d", model.ErrMalformedIntent, in.ChainID)
	}
	if in.Native {
		// Payments settle in the stable token only.
		return fmt.Errorf("%w: code asks for %s of the native coin", model.ErrMalformedIntent, in.Amount)
	}
	if in.Token != "" && !strings.EqualFold(in.Token, s.deps.Network.Tokens.Stable.Hex()) {
		return fmt.Errorf("%w: unsupported payment token %s", model.ErrMalformedIntent, in.Token)
	}

	s.state.Kind = model.KindPayment
	s.state.MerchantWallet = in.Recipient
	s.state.MerchantName = in.Name
	if in.Amount != "" {
		s.state.Amount = in.Amount
	}
	s.transition(model.StatePreparing, "intent "+in.Format)
	return nil
}

// BeginSwap starts a direct swap session from an idle one.
func (s *Session) BeginSwap(req model.SwapRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(model.StateIdle); err != nil {
		return err
	}
	if strings.TrimSpace(req.TokenIn) == "" || strings.TrimSpace(req.TokenOut) == "" {
		return fmt.Errorf("%w: swap needs token_in and token_out", model.ErrInvalidTransition)
	}
	s.state.Kind = model.KindSwap
	s.state.SwapRequest = &req
	s.state.Amount = req.Amount
	s.transition(model.StatePreparing, "swap requested")
	return nil
}

// SetAmount sets the payment amount while preparing, for codes without one.
func (s *Session) SetAmount(amount string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect(model.StatePreparing); err != nil {
		return err
	}
	if s.busy {
		return errBusy
	}
	decimals := s.deps.Network.Tokens.StableDecimals
	if s.state.Kind == model.KindSwap && s.state.SwapRequest != nil {
		decimals = s.inputDecimals(s.state.SwapRequest.TokenIn)
	}
	raw, err := dex.ParseUnits(amount, decimals)
	if err != nil || raw.Sign() == 0 {
		return fmt.Errorf("%w: invalid amount %q", model.ErrAmountRequired, amount)
	}
	s.state.Amount = strings.TrimSpace(amount)
	if s.state.SwapRequest != nil {
		req := *s.state.SwapRequest
		req.Amount = s.state.Amount
		s.state.SwapRequest = &req
	}
	s.touch()
	return nil
}

// Prepare reads balances, decides how the payment is funded and builds the
// execution plan. Insufficient funds and quote failures end the session.
func (s *Session) Prepare(ctx context.Context) error {
	s.mu.Lock()
	if err := s.expect(model.StatePreparing); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.busy {
		s.mu.Unlock()
		return errBusy
	}
	if s.state.Amount == "" {
		s.mu.Unlock()
		return model.ErrAmountRequired
	}
	s.busy = true
	snapshot := s.state
	s.mu.Unlock()

	plan, bal, funding, err := s.plan(ctx, snapshot)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.state.State != model.StatePreparing {
		// Cancelled while reading balances or quoting.
		return model.ErrTerminalState
	}
	if bal != nil {
		s.state.Balances = bal
	}
	if err != nil {
		if errors.Is(err, model.ErrInsufficientFunds) || errors.Is(err, model.ErrQuoteFailure) ||
			errors.Is(err, model.ErrEncodingFailure) {
			s.fail(err)
		}
		return err
	}

	s.state.NeedsSwap = funding.NeedsSwap
	if funding.NeedsSwap {
		s.state.SwapFromToken = funding.Source
	}
	s.state.Plan = plan
	s.transition(model.StateAwaitingConfirm, "funded from "+funding.Source)
	return nil
}

func (s *Session) plan(ctx context.Context, snapshot model.PaymentSession) (*model.ExecutionPlan, *model.WalletBalances, Funding, error) {
	owner := common.HexToAddress(snapshot.UserAddress)
	bal, err := s.deps.Balances.Fetch(ctx, owner)
	if err != nil {
		return nil, nil, Funding{}, fmt.Errorf("fetch balances: %w", err)
	}

	if snapshot.Kind == model.KindSwap {
		req := *snapshot.SwapRequest
		if err := checkSwapBalance(bal, req, s.deps.Funding.GasReserveWei); err != nil {
			return nil, &bal, Funding{}, err
		}
		route, err := s.deps.Router.Route(ctx, req, swap.RouteOptions{})
		if err != nil {
			return nil, &bal, Funding{}, err
		}
		return &model.ExecutionPlan{Swap: &route}, &bal, Funding{NeedsSwap: true, Source: strings.ToUpper(req.TokenIn)}, nil
	}

	policy := s.deps.Funding
	policy.StableDecimals = s.deps.Network.Tokens.StableDecimals
	funding, err := DecideFunding(bal, snapshot.Amount, policy)
	if err != nil {
		return nil, &bal, Funding{}, err
	}

	plan := &model.ExecutionPlan{}
	if funding.NeedsSwap {
		route, err := s.deps.Router.Route(ctx, model.SwapRequest{
			TokenIn:  funding.Source,
			TokenOut: SourceStable,
			Amount:   funding.SwapAmount,
		}, swap.RouteOptions{})
		if err != nil {
			return nil, &bal, funding, err
		}
		plan.Swap = &route
	}

	merchant := common.HexToAddress(snapshot.MerchantWallet)
	data, err := dex.EncodeTransfer(merchant, funding.AmountRaw)
	if err != nil {
		return nil, &bal, funding, err
	}
	plan.Transfer = &model.TransferCall{
		Token:     s.deps.Network.Tokens.Stable.Hex(),
		To:        merchant.Hex(),
		AmountRaw: funding.AmountRaw.String(),
		Calldata:  hexutil.Encode(data),
	}

	s.deps.Logger.Info("payment funded",
		zap.String("session", snapshot.ID),
		zap.String("source", funding.Source),
		zap.Bool("needs_swap", funding.NeedsSwap),
		zap.String("swap_amount", funding.SwapAmount),
		zap.String("amount", snapshot.Amount),
	)
	return plan, &bal, funding, nil
}

// Confirm broadcasts the signed plan. A submission error fails the session;
// failed executions are never retried.
func (s *Session) Confirm(ctx context.Context, c Confirmation) error {
	s.mu.Lock()
	if err := s.expect(model.StateAwaitingConfirm); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(c.SignedTxs) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: confirmation carries no signed transactions", model.ErrInvalidTransition)
	}
	s.transition(model.StateExecuting, "confirmed")
	s.busy = true
	owner := common.HexToAddress(s.state.UserAddress)
	s.mu.Unlock()

	hash, err := s.deps.Executor.Submit(ctx, owner, c.SignedTxs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if err != nil {
		s.fail(err)
		return err
	}
	s.state.TxHash = hash.Hex()
	s.record(model.StateExecuting, model.StateExecuting, "submitted")
	return nil
}

// Settle follows the submitted transaction until it is confirmed, fails or
// the tracker gives up. A tracker timeout fails the session.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	if err := s.expect(model.StateExecuting); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state.TxHash == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: nothing submitted yet", model.ErrInvalidTransition)
	}
	hash := common.HexToHash(s.state.TxHash)
	s.mu.Unlock()

	status, err := s.deps.Tracker.Track(ctx, hash)
	if err != nil {
		return fmt.Errorf("track %s: %w", hash.Hex(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.State != model.StateExecuting {
		return model.ErrTerminalState
	}
	switch status.State {
	case model.TxConfirmed:
		s.transition(model.StateSuccess, fmt.Sprintf("confirmed in block %d", status.BlockNumber))
	case model.TxFailed:
		s.fail(errors.New("transaction reverted"))
	case model.TxTimeout:
		s.fail(errors.New("confirmation timeout"))
	default:
		return fmt.Errorf("%w: tracker stopped at %s", model.ErrInvalidTransition, status.State)
	}
	return nil
}

// Cancel ends the session unless a transaction was already submitted.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.State.Terminal() {
		return model.ErrTerminalState
	}
	if s.state.State == model.StateExecuting {
		return model.ErrCancelNotAllowed
	}
	s.transition(model.StateCancelled, "cancelled by user")
	return nil
}

// inputDecimals is the precision of a swap's input token. Tokens other than
// the stable one are checked at 18 decimals; the quote resolves the rest.
func (s *Session) inputDecimals(token string) uint8 {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, SourceStable) || strings.EqualFold(token, s.deps.Network.Tokens.Stable.Hex()) {
		return s.deps.Network.Tokens.StableDecimals
	}
	return 18
}

// expire cancels a session that has not moved since before cutoff. Sessions
// with a submitted transaction are left to settle.
func (s *Session) expire(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.State.Terminal() || s.state.State == model.StateExecuting {
		return false
	}
	if !s.state.UpdatedAt.Before(cutoff) {
		return false
	}
	s.transition(model.StateCancelled, "idle timeout")
	return true
}

func (s *Session) expect(want model.SessionState) error {
	if s.state.State.Terminal() {
		return model.ErrTerminalState
	}
	if s.state.State != want {
		return fmt.Errorf("%w: session is %s, need %s", model.ErrInvalidTransition, s.state.State, want)
	}
	return nil
}

func (s *Session) fail(err error) {
	s.state.Error = err.Error()
	s.transition(model.StateFailed, err.Error())
}

func (s *Session) touch() {
	s.state.UpdatedAt = s.now().UTC()
}

// transition must be called with mu held.
func (s *Session) transition(to model.SessionState, reason string) {
	from := s.state.State
	s.state.State = to
	metrics.SessionTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.record(from, to, reason)
	if to.Terminal() && s.onTerminal != nil {
		s.onTerminal(s.state.ID)
	}
}

func (s *Session) record(from, to model.SessionState, reason string) {
	s.touch()
	event := model.SessionEvent{
		SessionID: s.state.ID,
		From:      from,
		To:        to,
		Reason:    reason,
		TxHash:    s.state.TxHash,
		At:        s.state.UpdatedAt,
	}
	s.deps.Logger.Debug("session transition",
		zap.String("session", s.state.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason),
	)
	if s.deps.Journal == nil {
		return
	}
	// The journal gets a context of its own so a cancelled request still
	// records the transition it caused.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.deps.Journal.Record(ctx, s.state, event); err != nil {
		s.deps.Logger.Warn("journal write failed", zap.String("session", s.state.ID), zap.Error(err))
	}
}

// checkSwapBalance rejects swaps of a known asset larger than the wallet
// holds. Unknown tokens are left to the quote.
func checkSwapBalance(bal model.WalletBalances, req model.SwapRequest, reserve *big.Int) error {
	var held model.TokenBalance
	keep := new(big.Int)
	switch strings.ToUpper(strings.TrimSpace(req.TokenIn)) {
	case SourceNative, "NATIVE":
		held = bal.Native
		keep = DefaultGasReserveWei
		if reserve != nil {
			keep = reserve
		}
	case SourceWrapped:
		held = bal.Wrapped
	case SourceStable:
		held = bal.Stable
	default:
		return nil
	}
	want, err := dex.ParseUnits(req.Amount, held.Decimals)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrAmountRequired, err)
	}
	available := new(big.Int).Sub(rawBalance(held), keep)
	if available.Cmp(want) < 0 {
		return fmt.Errorf("%w: swap of %s %s exceeds spendable %s",
			model.ErrInsufficientFunds, req.Amount, held.Symbol, dex.FormatUnits(available, held.Decimals))
	}
	return nil
}

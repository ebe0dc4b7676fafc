package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"swapPay/internal/model"
	"swapPay/internal/network"
	"swapPay/internal/session"
	"swapPay/internal/storage"
	"swapPay/internal/swap"
)

func init() { gin.SetMode(gin.TestMode) }

const (
	userAddr     = "0x1111111111111111111111111111111111111111"
	merchantAddr = "0xabCDeF0123456789AbcdEf0123456789aBCDEF01"
)

type stubSwap struct {
	err error
}

func (s stubSwap) Quote(_ context.Context, req model.SwapRequest) (model.Quote, error) {
	if s.err != nil {
		return model.Quote{}, s.err
	}
	return model.Quote{
		TokenIn:  model.TokenAmount{Symbol: req.TokenIn, Amount: req.Amount},
		TokenOut: model.TokenAmount{Symbol: req.TokenOut, Amount: "2500"},
		Route:    []string{req.TokenIn, req.TokenOut},
	}, nil
}

func (s stubSwap) Route(ctx context.Context, req model.SwapRequest, opts swap.RouteOptions) (model.Route, error) {
	q, err := s.Quote(ctx, req)
	if err != nil {
		return model.Route{}, err
	}
	bps := uint32(50)
	if opts.SlippageBps != nil {
		bps = *opts.SlippageBps
	}
	return model.Route{Quote: q, Calldata: "0x3593564c", SlippageBps: bps}, nil
}

type stubExecutor struct {
	err error
}

func (s stubExecutor) Submit(context.Context, common.Address, []string) (common.Hash, error) {
	return common.HexToHash("0xfeed"), s.err
}

type stubStatus struct{}

func (stubStatus) Status(_ context.Context, hash common.Hash) (model.TxStatus, error) {
	return model.TxStatus{Hash: hash.Hex(), State: model.TxConfirmed, BlockNumber: 12}, nil
}

func (stubStatus) Track(ctx context.Context, hash common.Hash) (model.TxStatus, error) {
	return stubStatus{}.Status(ctx, hash)
}

type stubPrice struct{}

func (stubPrice) Price(context.Context) model.PriceCache {
	return model.PriceCache{Asset: "ETH-USD", Price: 2500, Source: "coinbase"}
}

type stubBalances struct{}

func (stubBalances) Fetch(context.Context, common.Address) (model.WalletBalances, error) {
	return model.WalletBalances{
		Stable:      model.TokenBalance{Symbol: "USDC", Decimals: 6, BalanceRaw: "15000000"},
		Wrapped:     model.TokenBalance{Symbol: "WETH", Decimals: 18, BalanceRaw: "0"},
		Native:      model.TokenBalance{Symbol: "ETH", Decimals: 18, BalanceRaw: "0"},
		EthPriceUSD: 2500,
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T, swapErr error) *Server {
	t.Helper()
	params, err := network.Base.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	mgr := session.NewManager(session.Deps{
		Network:  params,
		Balances: stubBalances{},
		Router:   stubSwap{err: swapErr},
		Executor: stubExecutor{},
		Tracker:  stubStatus{},
	})
	return New(Config{}, Deps{
		Swap:     stubSwap{err: swapErr},
		Executor: stubExecutor{},
		Status:   stubStatus{},
		Prices:   stubPrice{},
		Sessions: mgr,
	}, nil)
}

func do(t *testing.T, srv *Server, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec.Code, env
}

func TestQuoteEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	code, env := do(t, srv, http.MethodGet, "/api/v1/quote?token_in=ETH&token_out=USDC&amount=1", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("expected ok, got %d %+v", code, env)
	}
	var quote model.Quote
	if err := json.Unmarshal(env.Data, &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if quote.TokenOut.Amount != "2500" {
		t.Fatalf("unexpected quote %+v", quote)
	}

	code, _ = do(t, srv, http.MethodGet, "/api/v1/quote?token_in=ETH", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing params, got %d", code)
	}

	code, env = do(t, srv, http.MethodPost, "/api/v1/route", map[string]interface{}{
		"token_in": "ETH", "token_out": "USDC", "amount": "1", "slippage_bps": 100,
	})
	if code != http.StatusOK {
		t.Fatalf("route: %d %s", code, env.Error)
	}
	var route model.Route
	if err := json.Unmarshal(env.Data, &route); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	if route.SlippageBps != 100 || route.Calldata == "" {
		t.Fatalf("unexpected route %+v", route)
	}
}

func TestQuoteFailureMapsTo422(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("%w: pool does not exist", model.ErrQuoteFailure))
	code, env := do(t, srv, http.MethodPost, "/api/v1/quote", map[string]string{
		"token_in": "ETH", "token_out": "USDC", "amount": "1",
	})
	if code != http.StatusUnprocessableEntity || env.Success || env.Error == "" {
		t.Fatalf("expected 422 with error, got %d %+v", code, env)
	}
}

func TestStatusAndPrice(t *testing.T) {
	srv := newTestServer(t, nil)

	code, _ := do(t, srv, http.MethodGet, "/api/v1/status/0x1234", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short hash, got %d", code)
	}
	hash := common.HexToHash("0xabc").Hex()
	code, env := do(t, srv, http.MethodGet, "/api/v1/status/"+hash, nil)
	if code != http.StatusOK {
		t.Fatalf("status: %d %s", code, env.Error)
	}
	var status model.TxStatus
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.State != model.TxConfirmed || status.Hash != hash {
		t.Fatalf("unexpected status %+v", status)
	}

	code, env = do(t, srv, http.MethodGet, "/api/v1/price", nil)
	if code != http.StatusOK || !env.Success {
		t.Fatalf("price: %d", code)
	}

	code, env = do(t, srv, http.MethodPost, "/api/v1/execute", map[string]interface{}{"signed_txs": []string{"0x02"}})
	if code != http.StatusOK {
		t.Fatalf("execute: %d %s", code, env.Error)
	}
	code, _ = do(t, srv, http.MethodPost, "/api/v1/execute", map[string]interface{}{"signed_txs": []string{}})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", code)
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	code, env := do(t, srv, http.MethodPost, "/api/v1/sessions", map[string]string{"user_address": userAddr})
	if code != http.StatusOK {
		t.Fatalf("create: %d %s", code, env.Error)
	}
	var sess model.PaymentSession
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	base := "/api/v1/sessions/" + sess.ID

	code, _ = do(t, srv, http.MethodPost, base+"/scan", map[string]string{"code": "hello"})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed code, got %d", code)
	}
	code, env = do(t, srv, http.MethodPost, base+"/scan", map[string]string{"code": merchantAddr})
	if code != http.StatusOK {
		t.Fatalf("scan: %d %s", code, env.Error)
	}
	code, _ = do(t, srv, http.MethodPost, base+"/prepare", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 without amount, got %d", code)
	}
	if code, env = do(t, srv, http.MethodPost, base+"/amount", map[string]string{"amount": "10"}); code != http.StatusOK {
		t.Fatalf("amount: %d %s", code, env.Error)
	}
	if code, env = do(t, srv, http.MethodPost, base+"/prepare", nil); code != http.StatusOK {
		t.Fatalf("prepare: %d %s", code, env.Error)
	}
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.State != model.StateAwaitingConfirm || sess.NeedsSwap {
		t.Fatalf("unexpected prepared session %+v", sess)
	}

	if code, env = do(t, srv, http.MethodPost, base+"/confirm", map[string]interface{}{"signed_txs": []string{"0x02"}}); code != http.StatusOK {
		t.Fatalf("confirm: %d %s", code, env.Error)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, env = do(t, srv, http.MethodGet, base, nil)
		if err := json.Unmarshal(env.Data, &sess); err != nil {
			t.Fatalf("decode session: %v", err)
		}
		if sess.State == model.StateSuccess {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never settled, state %s", sess.State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	code, _ = do(t, srv, http.MethodPost, base+"/cancel", nil)
	if code != http.StatusConflict {
		t.Fatalf("expected 409 on terminal session, got %d", code)
	}
	code, _ = do(t, srv, http.MethodGet, "/api/v1/sessions/missing", nil)
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestReapedSessionReadFromJournal(t *testing.T) {
	params, err := network.Base.Params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	journal := storage.NewJsonlJournal(filepath.Join(t.TempDir(), "sessions.jsonl"))
	mgr := session.NewManager(session.Deps{
		Network:  params,
		Balances: stubBalances{},
		Router:   stubSwap{},
		Executor: stubExecutor{},
		Tracker:  stubStatus{},
		Journal:  journal,
	})
	srv := New(Config{}, Deps{Sessions: mgr, Archive: journal}, nil)

	sess, err := mgr.Create(userAddr)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sess.Cancel(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// A negative retention drops every ended session.
	if n := mgr.Reap(-time.Minute); n != 1 {
		t.Fatalf("expected the cancelled session to be reaped, got %d", n)
	}

	base := "/api/v1/sessions/" + sess.ID()
	code, env := do(t, srv, http.MethodGet, base, nil)
	if code != http.StatusOK {
		t.Fatalf("get archived: %d %s", code, env.Error)
	}
	var snap model.PaymentSession
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if snap.ID != sess.ID() || snap.State != model.StateCancelled {
		t.Fatalf("unexpected archived session %+v", snap)
	}

	code, env = do(t, srv, http.MethodGet, base+"/events", nil)
	if code != http.StatusOK {
		t.Fatalf("events: %d %s", code, env.Error)
	}
	var events []model.SessionEvent
	if err := json.Unmarshal(env.Data, &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 1 || events[0].To != model.StateCancelled {
		t.Fatalf("unexpected events %+v", events)
	}

	if code, _ = do(t, srv, http.MethodGet, "/api/v1/sessions/missing", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", code)
	}
	if code, _ = do(t, srv, http.MethodGet, "/api/v1/sessions/missing/events", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown events, got %d", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

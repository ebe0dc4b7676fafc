package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swapPay/internal/model"
	"swapPay/internal/storage"
)

var (
	_ storage.Journal = (*Store)(nil)
	_ storage.Archive = (*Store)(nil)
)

// Schema creates the journal tables when missing.
const Schema = `
CREATE TABLE IF NOT EXISTS payment_sessions (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	state           TEXT NOT NULL,
	user_address    TEXT NOT NULL DEFAULT '',
	merchant_wallet TEXT NOT NULL DEFAULT '',
	amount          TEXT NOT NULL DEFAULT '',
	needs_swap      BOOLEAN NOT NULL DEFAULT false,
	tx_hash         TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	snapshot        JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_events (
	id          BIGSERIAL PRIMARY KEY,
	session_id  TEXT NOT NULL REFERENCES payment_sessions(id),
	from_state  TEXT NOT NULL,
	to_state    TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	tx_hash     TEXT NOT NULL DEFAULT '',
	at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS session_events_session_idx ON session_events (session_id, at);
`

// Store provides Postgres persistence for the session journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Record upserts the session snapshot and appends the transition in one batch.
func (s *Store) Record(ctx context.Context, session model.PaymentSession, event model.SessionEvent) error {
	snapshot, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO payment_sessions (
			id, kind, state, user_address, merchant_wallet, amount, needs_swap, tx_hash, error,
			snapshot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)
		ON CONFLICT (id)
		DO UPDATE SET
			state = EXCLUDED.state,
			user_address = EXCLUDED.user_address,
			merchant_wallet = EXCLUDED.merchant_wallet,
			amount = EXCLUDED.amount,
			needs_swap = EXCLUDED.needs_swap,
			tx_hash = EXCLUDED.tx_hash,
			error = EXCLUDED.error,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
	`,
		session.ID,
		string(session.Kind),
		string(session.State),
		session.UserAddress,
		session.MerchantWallet,
		session.Amount,
		session.NeedsSwap,
		session.TxHash,
		session.Error,
		string(snapshot),
		session.CreatedAt,
		session.UpdatedAt,
	)
	batch.Queue(`
		INSERT INTO session_events (session_id, from_state, to_state, reason, tx_hash, at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		event.SessionID,
		string(event.From),
		string(event.To),
		event.Reason,
		event.TxHash,
		event.At,
	)

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadSession returns the latest snapshot of id.
func (s *Store) LoadSession(ctx context.Context, id string) (model.PaymentSession, bool, error) {
	if id == "" {
		return model.PaymentSession{}, false, fmt.Errorf("session id required")
	}
	var raw []byte
	row := s.pool.QueryRow(ctx, `SELECT snapshot FROM payment_sessions WHERE id=$1`, id)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PaymentSession{}, false, nil
		}
		return model.PaymentSession{}, false, err
	}
	var session model.PaymentSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return model.PaymentSession{}, false, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return session, true, nil
}

// LoadEvents returns the transitions of id, oldest first.
func (s *Store) LoadEvents(ctx context.Context, id string) ([]model.SessionEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, from_state, to_state, reason, tx_hash, at
		FROM session_events WHERE session_id=$1 ORDER BY at, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.SessionEvent
	for rows.Next() {
		var (
			ev       model.SessionEvent
			from, to string
		)
		if err := rows.Scan(&ev.SessionID, &from, &to, &ev.Reason, &ev.TxHash, &ev.At); err != nil {
			return nil, err
		}
		ev.From = model.SessionState(from)
		ev.To = model.SessionState(to)
		events = append(events, ev)
	}
	return events, rows.Err()
}

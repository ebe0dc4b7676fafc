package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"swapPay/internal/model"
)

func TestJsonlJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.jsonl")
	journal := NewJsonlJournal(path)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	session := model.PaymentSession{ID: "s1", Kind: model.KindPayment, State: model.StateScanning, CreatedAt: at, UpdatedAt: at}
	if err := journal.Record(ctx, session, model.SessionEvent{SessionID: "s1", From: model.StateIdle, To: model.StateScanning, At: at}); err != nil {
		t.Fatalf("record: %v", err)
	}
	session.State = model.StatePreparing
	session.Amount = "10"
	if err := journal.Record(ctx, session, model.SessionEvent{SessionID: "s1", From: model.StateScanning, To: model.StatePreparing, Reason: "intent", At: at}); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := ReadJournal(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Event.To != model.StatePreparing || entries[1].Session.Amount != "10" {
		t.Fatalf("unexpected entry %+v", entries[1])
	}
	if !entries[0].Event.At.Equal(at) {
		t.Fatalf("timestamp not preserved: %v", entries[0].Event.At)
	}
}

func TestJsonlJournalLoadsSessions(t *testing.T) {
	journal := NewJsonlJournal(filepath.Join(t.TempDir(), "sessions.jsonl"))
	ctx := context.Background()

	if _, found, err := journal.LoadSession(ctx, "s1"); err != nil || found {
		t.Fatalf("empty journal: found=%v err=%v", found, err)
	}

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	steps := []struct {
		id       string
		from, to model.SessionState
	}{
		{"s1", model.StateIdle, model.StateScanning},
		{"s2", model.StateIdle, model.StateCancelled},
		{"s1", model.StateScanning, model.StateCancelled},
	}
	for _, step := range steps {
		session := model.PaymentSession{ID: step.id, State: step.to, UpdatedAt: at}
		if err := journal.Record(ctx, session, model.SessionEvent{SessionID: step.id, From: step.from, To: step.to, At: at}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	session, found, err := journal.LoadSession(ctx, "s1")
	if err != nil || !found {
		t.Fatalf("load session: found=%v err=%v", found, err)
	}
	if session.State != model.StateCancelled {
		t.Fatalf("expected latest snapshot, got %s", session.State)
	}
	events, err := journal.LoadEvents(ctx, "s1")
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 2 || events[0].To != model.StateScanning || events[1].To != model.StateCancelled {
		t.Fatalf("unexpected events %+v", events)
	}
}

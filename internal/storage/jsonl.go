package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"swapPay/internal/model"
)

var _ Archive = (*JsonlJournal)(nil)

// JournalEntry is one line of the JSONL journal.
type JournalEntry struct {
	Event   model.SessionEvent   `json:"event"`
	Session model.PaymentSession `json:"session"`
}

// JsonlJournal appends session transitions to a JSONL file.
type JsonlJournal struct {
	path string
	mu   sync.Mutex
}

func NewJsonlJournal(path string) *JsonlJournal {
	return &JsonlJournal{path: path}
}

// Record appends one transition with the session snapshot taken after it.
func (j *JsonlJournal) Record(_ context.Context, session model.PaymentSession, event model.SessionEvent) error {
	line, err := json.Marshal(JournalEntry{Event: event, Session: session})
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	dir := filepath.Dir(j.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create journal dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(line); err != nil {
		return fmt.Errorf("write journal entry: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	return nil
}

// LoadSession returns the last snapshot recorded for id.
func (j *JsonlJournal) LoadSession(_ context.Context, id string) (model.PaymentSession, bool, error) {
	entries, err := j.entries()
	if err != nil {
		return model.PaymentSession{}, false, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Session.ID == id {
			return entries[i].Session, true, nil
		}
	}
	return model.PaymentSession{}, false, nil
}

// LoadEvents returns the transitions recorded for id, oldest first.
func (j *JsonlJournal) LoadEvents(_ context.Context, id string) ([]model.SessionEvent, error) {
	entries, err := j.entries()
	if err != nil {
		return nil, err
	}
	var events []model.SessionEvent
	for _, entry := range entries {
		if entry.Event.SessionID == id {
			events = append(events, entry.Event)
		}
	}
	return events, nil
}

func (j *JsonlJournal) entries() ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries, err := ReadJournal(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}

// ReadJournal loads every entry of a JSONL journal, oldest first.
func ReadJournal(path string) ([]JournalEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var entry JournalEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("journal line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return entries, nil
}

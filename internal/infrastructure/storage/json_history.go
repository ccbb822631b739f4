package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"WeatherAlertWatch/internal/domain"
	"WeatherAlertWatch/internal/infrastructure/fileio"
	"WeatherAlertWatch/internal/ports"
)

const historyFileSuffix = "_history.json"

// JSONHistoryStore keeps one {"processed_caps": [...]} document per event type.
type JSONHistoryStore struct {
	dir      string
	capacity int
	locks    *fileio.Locks
}

var _ ports.HistoryStore = (*JSONHistoryStore)(nil)

// NewJSONHistoryStore stores ledgers under dir; locks may be shared with other file writers.
func NewJSONHistoryStore(dir string, capacity int, locks *fileio.Locks) *JSONHistoryStore {
	if locks == nil {
		locks = fileio.NewLocks()
	}
	return &JSONHistoryStore{dir: dir, capacity: capacity, locks: locks}
}

// Location returns the history file path for an event type.
func (s *JSONHistoryStore) Location(event domain.EventType) string {
	return filepath.Join(s.dir, string(event)+historyFileSuffix)
}

// Ensure creates an empty history document when none exists yet.
func (s *JSONHistoryStore) Ensure(ctx context.Context, event domain.EventType) error {
	path := s.Location(event)
	release := s.locks.Lock(path)
	defer release()

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &domain.Error{Kind: domain.KindPersistenceRead, Path: path, Err: err}
	}

	raw, err := encodeLedger(domain.NewLedger(s.capacity))
	if err != nil {
		return &domain.Error{Kind: domain.KindPersistenceWrite, Path: path, Err: err}
	}
	if err := fileio.WriteFileAtomic(path, raw); err != nil {
		return &domain.Error{Kind: domain.KindPersistenceWrite, Path: path, Err: err}
	}
	return nil
}

// Load reads the ledger; a missing file yields an empty one.
func (s *JSONHistoryStore) Load(ctx context.Context, event domain.EventType) (domain.Ledger, error) {
	path := s.Location(event)
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewLedger(s.capacity), nil
	}
	if err != nil {
		return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: path, Err: err}
	}

	var ledger domain.Ledger
	if err := json.Unmarshal(raw, &ledger); err != nil {
		return domain.Ledger{}, &domain.Error{Kind: domain.KindPersistenceRead, Path: path, Detail: "decode history", Err: err}
	}
	if ledger.Entries == nil {
		ledger.Entries = []string{}
	}
	ledger.Capacity = s.capacity
	if s.capacity > 0 && len(ledger.Entries) > s.capacity {
		ledger.Entries = ledger.Entries[len(ledger.Entries)-s.capacity:]
	}
	return ledger, nil
}

// Persist replaces the stored ledger wholesale.
func (s *JSONHistoryStore) Persist(ctx context.Context, event domain.EventType, ledger domain.Ledger) error {
	path := s.Location(event)
	raw, err := encodeLedger(ledger)
	if err != nil {
		return &domain.Error{Kind: domain.KindPersistenceWrite, Path: path, Err: err}
	}

	release := s.locks.Lock(path)
	defer release()

	if err := fileio.WriteFileAtomic(path, raw); err != nil {
		return &domain.Error{Kind: domain.KindPersistenceWrite, Path: path, Err: err}
	}
	return nil
}

func encodeLedger(ledger domain.Ledger) ([]byte, error) {
	if ledger.Entries == nil {
		ledger.Entries = []string{}
	}
	raw, err := json.Marshal(ledger)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return raw, nil
}

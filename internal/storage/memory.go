package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"codegate/internal/codebank"
)

// MemoryStore is an in-process RecordStore for tests and local runs. It keeps
// the record as raw bytes so unparsable-state behaviour can be exercised too.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
	rev  int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the current record, or an empty bank if nothing was persisted.
func (s *MemoryStore) Load(ctx context.Context) (*codebank.Codebank, Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return codebank.New(), "", nil
	}

	bank, err := decodeBank(s.data)
	if err != nil {
		return nil, "", err
	}
	return bank, Revision(strconv.FormatInt(s.rev, 10)), nil
}

// Persist overwrites the record if rev matches the current revision.
func (s *MemoryStore) Persist(ctx context.Context, bank *codebank.Codebank, rev Revision) (Revision, error) {
	data, err := json.Marshal(bank)
	if err != nil {
		return "", fmt.Errorf("failed to encode codebank: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := Revision("")
	if s.data != nil {
		current = Revision(strconv.FormatInt(s.rev, 10))
	}
	if rev != current {
		return "", ErrRevisionConflict
	}

	s.data = data
	s.rev++
	return Revision(strconv.FormatInt(s.rev, 10)), nil
}

// SeedRaw replaces the stored record with arbitrary bytes. Test hook for
// corrupt or handcrafted records.
func (s *MemoryStore) SeedRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
	s.rev++
}

// Raw returns a copy of the stored record bytes, or nil if absent.
func (s *MemoryStore) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	return append([]byte(nil), s.data...)
}

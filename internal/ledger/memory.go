package ledger

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps the ledger in memory only
type MemoryStore struct {
	mu     sync.Mutex
	state  fileState
	limit  int
	closed bool
}

// NewMemoryStore creates an empty in-memory store keeping limit recent rounds
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) Totals(ctx context.Context) (Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Totals{}, ErrClosed
	}
	return m.state.Totals, nil
}

func (m *MemoryStore) Record(ctx context.Context, entry Entry) (Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Totals{}, ErrClosed
	}
	m.state.record(entry, m.limit)
	return m.state.Totals, nil
}

func (m *MemoryStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	return m.state.recent(limit), nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// fileState is the persisted document shared by the memory and file stores.
// Recent is ordered oldest first.
type fileState struct {
	Totals Totals  `json:"totals"`
	Recent []Entry `json:"recent"`
}

func (s *fileState) has(roundID string) bool {
	return slices.ContainsFunc(s.Recent, func(e Entry) bool { return e.RoundID == roundID })
}

// record applies entry and reports whether it was new
func (s *fileState) record(entry Entry, limit int) bool {
	if entry.RoundID != "" && s.has(entry.RoundID) {
		return false
	}
	s.Totals.apply(entry)
	s.Recent = append(s.Recent, entry)
	if limit > 0 && len(s.Recent) > limit {
		s.Recent = slices.Clone(s.Recent[len(s.Recent)-limit:])
	}
	return true
}

// recent returns up to limit entries, newest first
func (s *fileState) recent(limit int) []Entry {
	n := len(s.Recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.Recent[i])
	}
	return out
}

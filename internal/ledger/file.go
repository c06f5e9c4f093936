package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/lox/blackjack/internal/fileutil"
)

// FileStore keeps the ledger in a JSON document rewritten atomically after
// every round.
type FileStore struct {
	mu     sync.Mutex
	path   string
	limit  int
	state  fileState
	closed bool
}

// OpenFile loads the ledger at path, starting empty when the file does not
// exist yet.
func OpenFile(path string, limit int) (*FileStore, error) {
	fs := &FileStore{path: path, limit: limit}
	if _, err := fileutil.ReadJSON(path, &fs.state); err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return fs, nil
}

// Path returns the file backing the store
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Totals(ctx context.Context) (Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Totals{}, ErrClosed
	}
	return f.state.Totals, nil
}

func (f *FileStore) Record(ctx context.Context, entry Entry) (Totals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return Totals{}, ErrClosed
	}

	next := fileState{Totals: f.state.Totals, Recent: append([]Entry(nil), f.state.Recent...)}
	if !next.record(entry, f.limit) {
		return f.state.Totals, nil
	}
	if err := fileutil.WriteJSONAtomic(f.path, next); err != nil {
		return f.state.Totals, fmt.Errorf("failed to write ledger: %w", err)
	}
	f.state = next
	return f.state.Totals, nil
}

func (f *FileStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	return f.state.recent(limit), nil
}

func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

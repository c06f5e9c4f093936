package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/game"
)

const recordTimeout = 3 * time.Second

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// Anonymous records rounds without touching the stored balance. Used for
// sessions that do not play the ledger owner's bankroll.
func Anonymous() RecorderOption {
	return func(r *Recorder) { r.anonymous = true }
}

// Recorder subscribes to an engine's events and writes every settled round
// to a store. Store failures are logged, never returned to the engine.
type Recorder struct {
	store     Store
	clock     quartz.Clock
	logger    *log.Logger
	anonymous bool

	mu     sync.Mutex
	totals Totals
	err    error
}

// NewRecorder creates a recorder writing to store
func NewRecorder(store Store, clock quartz.Clock, logger *log.Logger, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, clock: clock, logger: logger.WithPrefix("ledger")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OnEvent implements game.EventSubscriber
func (r *Recorder) OnEvent(event game.GameEvent) {
	settled, ok := event.(game.RoundSettledEvent)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := EntryFromSettlement(settled, r.clock.Now())
	entry.Anonymous = r.anonymous
	totals, err := r.store.Record(ctx, entry)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	if err != nil {
		r.logger.Error("Failed to record round", "round", settled.RoundID, "error", err)
		return
	}
	r.totals = totals
	r.logger.Debug("Recorded round", "round", settled.RoundID, "net", settled.Net(), "rounds", totals.Rounds)
}

// Totals returns the totals after the last successful write
func (r *Recorder) Totals() Totals {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals
}

// Err returns the error from the most recent write, if any
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ResumeBalance returns the balance to start a session with: the stored
// balance when there is history and it is positive, otherwise fallback.
func ResumeBalance(ctx context.Context, store Store, fallback int) (int, error) {
	totals, err := store.Totals(ctx)
	if err != nil {
		return 0, err
	}
	if totals.Rounds == 0 || totals.Balance <= 0 {
		return fallback, nil
	}
	return totals.Balance, nil
}

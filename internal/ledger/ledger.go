// Package ledger persists cumulative results and the player's balance
// between sessions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/game"
)

// DefaultRecentLimit is how many settled rounds a store keeps for history
const DefaultRecentLimit = 50

// ErrClosed is returned by stores used after Close
var ErrClosed = errors.New("ledger closed")

// Totals is the cumulative record across sessions
type Totals struct {
	Rounds     int       `json:"rounds"`
	Hands      int       `json:"hands"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	Pushes     int       `json:"pushes"`
	Blackjacks int       `json:"blackjacks"`
	Staked     int       `json:"staked"`
	Paid       int       `json:"paid"`
	Balance    int       `json:"balance"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Net returns the cumulative profit or loss
func (t Totals) Net() int { return t.Paid - t.Staked }

// Entry is one settled round
type Entry struct {
	RoundID     string             `json:"round_id"`
	SettledAt   time.Time          `json:"settled_at"`
	Outcomes    []game.HandOutcome `json:"outcomes"`
	DealerValue int                `json:"dealer_value"`
	Staked      int                `json:"staked"`
	Paid        int                `json:"paid"`
	Balance     int                `json:"balance"`
	Anonymous   bool               `json:"anonymous,omitempty"` // counted, but Balance is not the owner's
}

// Net returns the round's profit or loss
func (e Entry) Net() int { return e.Paid - e.Staked }

// EntryFromSettlement builds an entry from a settlement event
func EntryFromSettlement(ev game.RoundSettledEvent, at time.Time) Entry {
	return Entry{
		RoundID:     ev.RoundID,
		SettledAt:   at.UTC(),
		Outcomes:    ev.Outcomes,
		DealerValue: ev.DealerValue,
		Staked:      ev.Staked,
		Paid:        ev.Paid,
		Balance:     ev.Balance,
	}
}

// apply folds an entry into the totals
func (t *Totals) apply(e Entry) {
	t.Rounds++
	for _, o := range e.Outcomes {
		t.Hands++
		switch o.Result {
		case game.Win:
			t.Wins++
		case game.Lose:
			t.Losses++
		case game.Push:
			t.Pushes++
		case game.BlackjackWin:
			t.Blackjacks++
		}
	}
	t.Staked += e.Staked
	t.Paid += e.Paid
	if !e.Anonymous {
		t.Balance = e.Balance
	}
	t.UpdatedAt = e.SettledAt
}

// Store persists totals and recent rounds. Recording a round ID the store
// still remembers is a no-op.
type Store interface {
	Totals(ctx context.Context) (Totals, error)
	Record(ctx context.Context, entry Entry) (Totals, error)
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open returns the store selected by the ledger settings
func Open(settings config.LedgerSettings) (Store, error) {
	switch settings.Driver {
	case config.DriverFile:
		return OpenFile(settings.Path, DefaultRecentLimit)
	case config.DriverSQLite:
		return OpenSQLite(settings.Path)
	case config.DriverNone, "":
		return NewMemoryStore(DefaultRecentLimit), nil
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", settings.Driver)
	}
}

package game

import (
	"fmt"
	"testing"

	"github.com/lox/blackjack/internal/deck"
)

// newStackedEngine builds an engine whose shoe deals cards in the given order.
// Initial deal order is player, dealer, player, dealer.
func newStackedEngine(t *testing.T, cards string, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	parsed, err := deck.ParseCards(cards)
	if err != nil {
		t.Fatalf("bad fixture %q: %v", cards, err)
	}
	rec := &recorder{}
	bus := NewEventBus()
	bus.Subscribe(rec)

	n := 0
	base := []Option{
		WithShoe(deck.NewStackedShoe(parsed...)),
		WithEventBus(bus),
		WithRoundIDs(func() string { n++; return fmt.Sprintf("round-%d", n) }),
	}
	return NewEngine(append(base, opts...)...), rec
}

type recorder struct {
	events []GameEvent
}

func (r *recorder) OnEvent(event GameEvent) {
	r.events = append(r.events, event)
}

func (r *recorder) ofType(et EventType) []GameEvent {
	var out []GameEvent
	for _, e := range r.events {
		if e.EventType() == et {
			out = append(out, e)
		}
	}
	return out
}

func mustStart(t *testing.T, e *Engine, bet int) Snapshot {
	t.Helper()
	snap, err := e.StartRound(bet)
	if err != nil {
		t.Fatalf("StartRound(%d): %v", bet, err)
	}
	return snap
}

func must(t *testing.T, snap Snapshot, err error) Snapshot {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return snap
}

func cardsString(cards []deck.Card) string {
	return fmt.Sprint(cards)
}

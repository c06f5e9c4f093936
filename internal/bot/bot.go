// Package bot provides automated players for simulations.
package bot

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

// Decision is an action together with a short explanation
type Decision struct {
	Action    game.Action
	Reasoning string
}

// Strategy decides what to do with the active hand of a snapshot in the
// player_turn phase.
type Strategy interface {
	MakeDecision(snap game.Snapshot) Decision
}

// Factory builds a strategy
type Factory func(rng *rand.Rand, logger *log.Logger) Strategy

var registry = map[string]Factory{
	"dealer":      func(_ *rand.Rand, logger *log.Logger) Strategy { return NewDealerBot(logger) },
	"basic":       func(_ *rand.Rand, logger *log.Logger) Strategy { return NewBasicBot(logger) },
	"random":      func(rng *rand.Rand, logger *log.Logger) Strategy { return NewRandBot(rng, logger) },
	"expectation": func(_ *rand.Rand, logger *log.Logger) Strategy { return NewExpectationBot(deck.DefaultDecks, logger) },
}

// Names lists the registered strategy names in sorted order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the strategy registered under name
func New(name string, rng *rand.Rand, logger *log.Logger) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (available: %v)", name, Names())
	}
	return factory(rng, logger.WithPrefix(name+"-bot"))
}

// upCardValue returns the dealer's visible card value with aces counted
// as 11, or 0 when the dealer has no cards.
func upCardValue(snap game.Snapshot) int {
	visible := snap.Dealer.Visible()
	if len(visible) == 0 {
		return 0
	}
	if visible[0].Rank == deck.Ace {
		return 11
	}
	return visible[0].Value()
}

// fallback picks the first offered action from preferences, defaulting to
// Stand.
func fallback(snap game.Snapshot, preferences ...game.Action) game.Action {
	for _, action := range preferences {
		if snap.Can(action) {
			return action
		}
	}
	return game.Stand
}

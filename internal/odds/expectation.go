package odds

import (
	"math"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

// Expectation is the expected net result per unit of the current stake for
// each decision. Double already accounts for the doubled stake.
type Expectation struct {
	Stand  float64 `json:"stand"`
	Hit    float64 `json:"hit"`
	Double float64 `json:"double"`
}

// Of returns the expectation for an action. Split is not evaluated and
// reports negative infinity.
func (e Expectation) Of(action game.Action) float64 {
	switch action {
	case game.Stand:
		return e.Stand
	case game.Hit:
		return e.Hit
	case game.Double:
		return e.Double
	default:
		return math.Inf(-1)
	}
}

// Best returns the offered action with the highest expectation, or Stand
// when nothing evaluable is offered.
func (e Expectation) Best(valid []game.Action) game.Action {
	best, bestEV := game.Stand, math.Inf(-1)
	for _, action := range valid {
		if ev := e.Of(action); ev > bestEV {
			best, bestEV = action, ev
		}
	}
	return best
}

// solver memoises dealer distributions by composition for one evaluation.
type solver struct {
	up     deck.Card
	dealer map[Composition]Outcomes
}

func (s *solver) outcomes(c *Composition) Outcomes {
	if o, ok := s.dealer[*c]; ok {
		return o
	}
	o := DealerOutcomes(*c, s.up)
	s.dealer[*c] = o
	return o
}

// play returns the expectation of standing on t and of hitting t with the
// best continuation on every branch.
func (s *solver) play(c *Composition, t total, odds float64) (stand, hit float64) {
	stand = standEV(t.best(), s.outcomes(c))
	if odds < pruneBelow || (odds < 1 && t.best() == 21) {
		return stand, math.Inf(-1)
	}

	n := float64(c.Total())
	for v := 1; v <= 10; v++ {
		if c[v] == 0 {
			continue
		}
		p := float64(c[v]) / n
		next := t.add(v)
		if next.best() > 21 {
			hit -= p
			continue
		}
		c[v]--
		hs, hh := s.play(c, next, odds*p)
		c[v]++
		hit += p * max(hs, hh)
	}
	return stand, hit
}

// Evaluate returns the expectation of standing, hitting and doubling on
// player against the dealer up-card with c as the unseen cards. The player
// cards and up-card must already be removed from c.
func Evaluate(c Composition, player []deck.Card, up deck.Card) Expectation {
	s := &solver{up: up, dealer: make(map[Composition]Outcomes)}
	t := totalOf(player)

	stand, hit := s.play(&c, t, 1)

	double := 0.0
	n := float64(c.Total())
	for v := 1; v <= 10; v++ {
		if c[v] == 0 {
			continue
		}
		p := float64(c[v]) / n
		next := t.add(v)
		c[v]--
		double += p * standEV(next.best(), s.outcomes(&c))
		c[v]++
	}

	return Expectation{Stand: stand, Hit: hit, Double: 2 * double}
}

// ForSnapshot evaluates the active hand of a player_turn snapshot. It
// reports false when no hand is waiting for a decision.
func ForSnapshot(snap game.Snapshot, decks int) (Expectation, bool) {
	hand, ok := snap.Active()
	visible := snap.Dealer.Visible()
	if !ok || snap.Phase != game.PlayerTurn || len(visible) == 0 {
		return Expectation{}, false
	}
	return Evaluate(FromSnapshot(snap, decks), hand.Cards, visible[0]), true
}

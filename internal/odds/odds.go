// Package odds computes the expected value of each player decision from
// the cards still left in the shoe. It backs the expectation strategy used
// in simulations and is never shown to a player.
//
// Dealer outcomes are exact for the given composition. The player's hit
// tree is explored recursively, removing each drawn card from the
// composition, and branches less likely than 1 in 10,000 are resolved as a
// stand.
package odds

import (
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

const pruneBelow = 1.0 / 10000

// Composition counts unseen cards by blackjack value. Index 1 is the ace
// and index 10 holds every ten-valued card. Index 0 is unused.
type Composition [11]int

// NewComposition returns the composition of a full shoe
func NewComposition(decks int) Composition {
	var c Composition
	for v := 1; v <= 9; v++ {
		c[v] = 4 * decks
	}
	c[10] = 16 * decks
	return c
}

// FromSnapshot returns a full shoe of the given size minus every card the
// player can see: all player hands and the dealer's visible cards.
func FromSnapshot(snap game.Snapshot, decks int) Composition {
	c := NewComposition(decks)
	for _, h := range snap.Hands {
		c.Remove(h.Cards...)
	}
	c.Remove(snap.Dealer.Visible()...)
	return c
}

// Remove takes cards out of the composition. Counts never go below zero.
func (c *Composition) Remove(cards ...deck.Card) {
	for _, card := range cards {
		if v := card.Value(); c[v] > 0 {
			c[v]--
		}
	}
}

// Total returns the number of cards left
func (c *Composition) Total() int {
	n := 0
	for v := 1; v <= 10; v++ {
		n += c[v]
	}
	return n
}

// total is a running hand total: aces counted as 1 plus whether one can
// still be promoted to 11.
type total struct {
	hard int
	ace  bool
}

func (t total) add(v int) total {
	return total{hard: t.hard + v, ace: t.ace || v == 1}
}

func (t total) best() int {
	if t.ace && t.hard+10 <= 21 {
		return t.hard + 10
	}
	return t.hard
}

func totalOf(cards []deck.Card) total {
	var t total
	for _, c := range cards {
		t = t.add(c.Value())
	}
	return t
}

// Outcomes is the distribution of the dealer's final hand: indexes 0-4
// are totals 17-21 and index 5 is a bust.
type Outcomes [6]float64

// Bust is the Outcomes index for a dealer bust
const Bust = 5

// Total returns the probability the dealer finishes on total (17..21)
func (o Outcomes) Total(total int) float64 {
	if total < game.DealerStandsOn || total > 21 {
		return 0
	}
	return o[total-game.DealerStandsOn]
}

// DealerOutcomes returns the dealer's final-total distribution given the
// up-card. The hole card is drawn from c and naturals are excluded, since
// they settle before the player acts.
func DealerOutcomes(c Composition, up deck.Card) Outcomes {
	var out Outcomes
	start := total{}.add(up.Value())
	n := float64(c.Total())

	for v := 1; v <= 10; v++ {
		if c[v] == 0 {
			continue
		}
		next := start.add(v)
		if next.best() == 21 {
			continue
		}
		p := float64(c[v]) / n
		c[v]--
		dealerDraw(&c, int(n)-1, next, p, &out)
		c[v]++
	}

	return out.normalized()
}

func dealerDraw(c *Composition, n int, t total, p float64, out *Outcomes) {
	b := t.best()
	switch {
	case b > 21:
		out[Bust] += p
		return
	case b >= game.DealerStandsOn:
		out[b-game.DealerStandsOn] += p
		return
	}

	if n == 0 {
		return
	}
	for v := 1; v <= 10; v++ {
		if c[v] == 0 {
			continue
		}
		q := p * float64(c[v]) / float64(n)
		c[v]--
		dealerDraw(c, n-1, t.add(v), q, out)
		c[v]++
	}
}

func (o Outcomes) normalized() Outcomes {
	sum := 0.0
	for _, p := range o {
		sum += p
	}
	if sum == 0 {
		return o
	}
	for i := range o {
		o[i] /= sum
	}
	return o
}

// standEV is the expected net result of standing on playerTotal
func standEV(playerTotal int, o Outcomes) float64 {
	if playerTotal > 21 {
		return -1
	}
	ev := o[Bust]
	for d := game.DealerStandsOn; d <= 21; d++ {
		switch {
		case playerTotal > d:
			ev += o.Total(d)
		case playerTotal < d:
			ev -= o.Total(d)
		}
	}
	return ev
}

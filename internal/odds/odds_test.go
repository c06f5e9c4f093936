package odds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

func card(s string) deck.Card {
	return deck.MustParseCards(s)[0]
}

func TestNewComposition(t *testing.T) {
	for decks := 1; decks <= 8; decks++ {
		c := NewComposition(decks)
		assert.Equal(t, 52*decks, c.Total())
		assert.Equal(t, 16*decks, c[10])
	}
}

func TestRemoveNeverGoesNegative(t *testing.T) {
	c := NewComposition(1)
	for range 5 {
		c.Remove(card("As"))
	}
	assert.Equal(t, 0, c[1])
	assert.Equal(t, 48, c.Total())
}

func TestFromSnapshotSkipsHoleCard(t *testing.T) {
	snap := game.Snapshot{
		Phase:      game.PlayerTurn,
		ActiveHand: 0,
		Hands:      []game.HandView{{Cards: deck.MustParseCards("Ts 6h")}},
		Dealer:     game.DealerView{Cards: deck.MustParseCards("9d Kc"), HoleConcealed: true},
	}
	c := FromSnapshot(snap, 1)
	assert.Equal(t, 49, c.Total())
	assert.Equal(t, 15, c[10], "the concealed king must stay in the unseen cards")
}

func TestDealerOutcomes(t *testing.T) {
	sum := func(o Outcomes) float64 {
		s := 0.0
		for _, p := range o {
			s += p
		}
		return s
	}

	for _, up := range []string{"As", "2s", "6s", "Ts"} {
		c := NewComposition(6)
		c.Remove(card(up))
		o := DealerOutcomes(c, card(up))
		assert.InDelta(t, 1.0, sum(o), 1e-9, up)
	}

	six := NewComposition(6)
	six.Remove(card("6s"))
	ten := NewComposition(6)
	ten.Remove(card("Ts"))

	bustSix := DealerOutcomes(six, card("6s"))[Bust]
	bustTen := DealerOutcomes(ten, card("Ts"))[Bust]
	assert.Greater(t, bustSix, 0.38)
	assert.Less(t, bustTen, 0.30)
	assert.Greater(t, bustSix, bustTen)
}

func TestDealerOutcomesExcludeNaturals(t *testing.T) {
	// Only aces and tens left: an ace up-card always makes a natural with a
	// ten, so the only non-natural hole card is another ace.
	var c Composition
	c[1] = 4
	c[10] = 4
	o := DealerOutcomes(c, card("As"))
	assert.InDelta(t, 1.0, o[0]+o[1]+o[2]+o[3]+o[4]+o[Bust], 1e-9)
}

func TestStandEV(t *testing.T) {
	var allBust Outcomes
	allBust[Bust] = 1
	assert.Equal(t, 1.0, standEV(12, allBust))
	assert.Equal(t, -1.0, standEV(22, allBust))

	var all19 Outcomes
	all19[19-17] = 1
	assert.Equal(t, -1.0, standEV(18, all19))
	assert.Equal(t, 0.0, standEV(19, all19))
	assert.Equal(t, 1.0, standEV(20, all19))
}

func evaluate(player, up string) Expectation {
	c := NewComposition(1)
	cards := deck.MustParseCards(player)
	c.Remove(cards...)
	c.Remove(card(up))
	return Evaluate(c, cards, card(up))
}

func TestEvaluate(t *testing.T) {
	// Low totals hit
	e := evaluate("2s 2h", "6d")
	assert.Greater(t, e.Hit, e.Stand)
	assert.Greater(t, e.Hit, e.Double)

	// High totals stand
	e = evaluate("9s 9h", "6d")
	assert.Greater(t, e.Stand, e.Hit)
	assert.Greater(t, e.Stand, e.Double)

	// Eleven against a weak dealer doubles
	e = evaluate("4s 7h", "6d")
	assert.Greater(t, e.Double, e.Stand)
	assert.Greater(t, e.Double, e.Hit)

	// Twenty is a strong favourite
	e = evaluate("Ts Kh", "6d")
	assert.Greater(t, e.Stand, 0.5)
	assert.Less(t, e.Hit, e.Stand)
}

func TestExpectationBest(t *testing.T) {
	e := Expectation{Stand: -0.2, Hit: 0.1, Double: 0.3}

	assert.Equal(t, game.Double, e.Best([]game.Action{game.Hit, game.Stand, game.Double}))
	assert.Equal(t, game.Hit, e.Best([]game.Action{game.Hit, game.Stand}))
	assert.Equal(t, game.Stand, e.Best(nil))
	assert.True(t, math.IsInf(e.Of(game.Split), -1))
}

func TestForSnapshot(t *testing.T) {
	e := game.NewEngine(game.WithShoe(deck.NewStackedShoe(deck.MustParseCards("Ts 6d 8h Kc Kd")...)))
	snap, err := e.StartRound(10)
	require.NoError(t, err)

	exp, ok := ForSnapshot(snap, 6)
	require.True(t, ok)
	assert.Greater(t, exp.Stand, exp.Hit, "18 against a six stands")

	_, err = e.Stand()
	require.NoError(t, err)
	_, ok = ForSnapshot(e.Snapshot(), 6)
	assert.False(t, ok)
}

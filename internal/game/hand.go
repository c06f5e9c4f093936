package game

import (
	"slices"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// Payout multipliers expressed as numerator/denominator of the stake. The
// returned amount includes the stake itself.
const (
	blackjackPayoutNum = 5 // stake + 3:2 profit, rounded down
	blackjackPayoutDen = 2
	winPayoutMultiple  = 2
)

// DealerStandsOn is the total at or above which the dealer stops drawing,
// soft totals included.
const DealerStandsOn = 17

// Hand is one player hand.
type Hand struct {
	Cards    []deck.Card
	Bet      int
	Doubled  bool
	Finished bool
	Result   Result
	Payout   int
}

// Value returns the best total of the hand
func (h *Hand) Value() int {
	return evaluator.BestValue(h.Cards)
}

func (h *Hand) canDouble(balance int) bool {
	return !h.Finished && len(h.Cards) == 2 && !h.Doubled && balance >= h.Bet
}

func (h *Hand) isPair() bool {
	return len(h.Cards) == 2 && h.Cards[0].Rank == h.Cards[1].Rank
}

func (h *Hand) clone() *Hand {
	c := *h
	c.Cards = slices.Clone(h.Cards)
	return &c
}

// DealerHand holds the dealer's cards. The second card stays concealed
// until Revealed.
type DealerHand struct {
	Cards    []deck.Card
	Revealed bool
}

// round is the mutable state of the round in progress.
type round struct {
	id     string
	phase  Phase
	dealer DealerHand
	hands  []*Hand
	active int
	staked int
	paid   int
}

func (r *round) clone() *round {
	if r == nil {
		return nil
	}
	c := *r
	c.dealer.Cards = slices.Clone(r.dealer.Cards)
	c.hands = make([]*Hand, len(r.hands))
	for i, h := range r.hands {
		c.hands[i] = h.clone()
	}
	return &c
}

func (r *round) activeHand() *Hand {
	if r.active < 0 || r.active >= len(r.hands) {
		return nil
	}
	return r.hands[r.active]
}

// payout computes what a settled hand returns against the final dealer hand.
func payout(h *Hand, dealer []deck.Card) (Result, int) {
	total := h.Value()
	dealerTotal := evaluator.BestValue(dealer)

	switch {
	case evaluator.IsBusted(h.Cards):
		return Lose, 0
	case evaluator.IsBlackjack(h.Cards) && !evaluator.IsBlackjack(dealer):
		return BlackjackWin, h.Bet * blackjackPayoutNum / blackjackPayoutDen
	case dealerTotal > evaluator.Target:
		return Win, h.Bet * winPayoutMultiple
	case total > dealerTotal:
		return Win, h.Bet * winPayoutMultiple
	case total == dealerTotal:
		return Push, h.Bet
	default:
		return Lose, 0
	}
}

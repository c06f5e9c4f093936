package game

import (
	"slices"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// Snapshot is a read-only copy of the engine state. Mutating it has no
// effect on the engine.
type Snapshot struct {
	RoundID       string
	Phase         Phase
	Balance       int
	ActiveHand    int // -1 when no hand is waiting for a decision
	Hands         []HandView
	Dealer        DealerView
	ValidActions  []Action
	Staked        int
	Paid          int
	ShoeRemaining int
}

// HandView describes one player hand
type HandView struct {
	Cards    []deck.Card
	Bet      int
	Doubled  bool
	Finished bool
	Result   Result
	Payout   int
	Value    int
	Soft     bool
	Status   evaluator.Status
}

// DealerView describes the dealer hand. When HoleConcealed is set the second
// card must not be shown and Value covers the up-card only.
type DealerView struct {
	Cards         []deck.Card
	HoleConcealed bool
	Value         int
}

// Visible returns the cards a player is allowed to see
func (d DealerView) Visible() []deck.Card {
	if d.HoleConcealed && len(d.Cards) > 1 {
		return d.Cards[:1]
	}
	return d.Cards
}

// Active returns the hand awaiting a decision, if any
func (s Snapshot) Active() (HandView, bool) {
	if s.ActiveHand < 0 || s.ActiveHand >= len(s.Hands) {
		return HandView{}, false
	}
	return s.Hands[s.ActiveHand], true
}

// Can reports whether the action is currently legal
func (s Snapshot) Can(action Action) bool {
	return slices.Contains(s.ValidActions, action)
}

// Snapshot returns the current state
func (e *Engine) Snapshot() Snapshot {
	st := e.state
	snap := Snapshot{
		Phase:         AwaitingBet,
		Balance:       st.balance,
		ActiveHand:    -1,
		ShoeRemaining: st.shoe.Remaining(),
	}

	r := st.round
	if r == nil {
		return snap
	}

	snap.RoundID = r.id
	snap.Phase = r.phase
	snap.Staked = r.staked
	snap.Paid = r.paid
	if r.phase == PlayerTurn {
		snap.ActiveHand = r.active
	}
	snap.ValidActions = validActions(r, st.balance)

	snap.Hands = make([]HandView, len(r.hands))
	for i, h := range r.hands {
		total, soft := evaluator.Value(h.Cards)
		snap.Hands[i] = HandView{
			Cards:    cloneCards(h.Cards),
			Bet:      h.Bet,
			Doubled:  h.Doubled,
			Finished: h.Finished,
			Result:   h.Result,
			Payout:   h.Payout,
			Value:    total,
			Soft:     soft,
			Status:   evaluator.Classify(h.Cards),
		}
	}

	concealed := !r.dealer.Revealed && len(r.dealer.Cards) > 1
	snap.Dealer = DealerView{
		Cards:         cloneCards(r.dealer.Cards),
		HoleConcealed: concealed,
	}
	snap.Dealer.Value = evaluator.BestValue(snap.Dealer.Visible())
	return snap
}

func cloneCards(cards []deck.Card) []deck.Card {
	if cards == nil {
		return nil
	}
	return slices.Clone(cards)
}

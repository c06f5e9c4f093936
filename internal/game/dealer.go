package game

import (
	"github.com/lox/blackjack/internal/evaluator"
)

// dealerStep performs one dealer action and reports whether the round
// settled. The dealer draws while below 17 and stands on every 17, soft or
// hard.
func (tx *txn) dealerStep() (bool, error) {
	r := tx.round
	if !r.dealer.Revealed {
		tx.reveal()
		return false, nil
	}
	if evaluator.BestValue(r.dealer.Cards) < DealerStandsOn {
		return false, tx.dealToDealer()
	}
	tx.settle()
	return true, nil
}

func (tx *txn) playDealer() error {
	for {
		settled, err := tx.dealerStep()
		if err != nil {
			return err
		}
		if settled {
			return nil
		}
	}
}

func (tx *txn) reveal() {
	dealer := &tx.round.dealer
	dealer.Revealed = true
	tx.emit(DealerRevealedEvent{
		Cards: cloneCards(dealer.Cards),
		Value: evaluator.BestValue(dealer.Cards),
	})
}

// settleNaturals resolves a round in which either side was dealt a natural.
func (tx *txn) settleNaturals(playerBJ, dealerBJ bool) {
	r := tx.round
	hand := r.hands[0]
	hand.Finished = true

	switch {
	case playerBJ && dealerBJ:
		hand.Result, hand.Payout = Push, hand.Bet
	case playerBJ:
		hand.Result, hand.Payout = BlackjackWin, hand.Bet*blackjackPayoutNum/blackjackPayoutDen
	default:
		hand.Result, hand.Payout = Lose, 0
	}

	tx.reveal()
	tx.finish()
}

// settle resolves every player hand against the final dealer hand.
func (tx *txn) settle() {
	for _, hand := range tx.round.hands {
		hand.Result, hand.Payout = payout(hand, tx.round.dealer.Cards)
	}
	tx.finish()
}

func (tx *txn) finish() {
	r := tx.round
	outcomes := make([]HandOutcome, len(r.hands))
	for i, hand := range r.hands {
		tx.balance += hand.Payout
		r.paid += hand.Payout
		outcomes[i] = HandOutcome{
			HandIndex: i,
			Result:    hand.Result,
			Bet:       hand.Bet,
			Payout:    hand.Payout,
			Value:     hand.Value(),
		}
	}
	r.phase = Settled
	r.active = -1

	tx.emit(RoundSettledEvent{
		Outcomes:    outcomes,
		DealerValue: evaluator.BestValue(r.dealer.Cards),
		Staked:      r.staked,
		Paid:        r.paid,
		Balance:     tx.balance,
	})
	tx.logger.Debug("Round settled", "round", r.id, "staked", r.staked, "paid", r.paid, "balance", tx.balance)
}

package game

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// Engine runs one blackjack round at a time against a single shoe and
// balance. It is not safe for concurrent use; wrap it when commands can
// arrive from more than one goroutine.
type Engine struct {
	state   tableState
	bus     EventBus
	logger  *log.Logger
	stepped bool
	newID   func() string
}

// tableState is everything a command may mutate.
type tableState struct {
	shoe    *deck.Shoe
	balance int
	round   *round
}

// txn is a working copy of the table state. Commands mutate the copy and
// the engine commits it only when the command succeeds.
type txn struct {
	tableState
	events  []GameEvent
	logger  *log.Logger
	stepped bool
}

func (e *Engine) apply(fn func(tx *txn) error) (Snapshot, error) {
	tx := &txn{
		tableState: tableState{
			shoe:    e.state.shoe.Clone(),
			balance: e.state.balance,
			round:   e.state.round.clone(),
		},
		logger:  e.logger,
		stepped: e.stepped,
	}

	if err := fn(tx); err != nil {
		return e.Snapshot(), err
	}

	e.state = tx.tableState
	for _, event := range tx.events {
		e.bus.Publish(event)
	}
	return e.Snapshot(), nil
}

// Events returns the bus the engine publishes on
func (e *Engine) Events() EventBus {
	return e.bus
}

// Balance returns the player's current balance
func (e *Engine) Balance() int {
	return e.state.balance
}

// Phase returns the current phase
func (e *Engine) Phase() Phase {
	if e.state.round == nil {
		return AwaitingBet
	}
	return e.state.round.phase
}

// StartRound accepts a bet, deals two cards each to player and dealer and
// settles immediately if either side holds a natural.
func (e *Engine) StartRound(bet int) (Snapshot, error) {
	return e.apply(func(tx *txn) error {
		if tx.round != nil && !tx.round.phase.IsTerminal() {
			return fmt.Errorf("%w: round %s is still in progress", ErrIllegalAction, tx.round.id)
		}
		if bet <= 0 {
			return fmt.Errorf("%w: bet must be positive, got %d", ErrInvalidBet, bet)
		}
		if bet > tx.balance {
			return fmt.Errorf("%w: bet %d exceeds balance %d", ErrInvalidBet, bet, tx.balance)
		}

		tx.balance -= bet
		tx.round = &round{
			id:     e.newID(),
			phase:  Dealing,
			hands:  []*Hand{{Bet: bet}},
			staked: bet,
		}
		tx.emit(RoundStartedEvent{Bet: bet, Balance: tx.balance})
		tx.logger.Debug("Round started", "round", tx.round.id, "bet", bet, "balance", tx.balance)

		// Player, dealer, player, dealer (hole card).
		if err := tx.dealToHand(0); err != nil {
			return err
		}
		if err := tx.dealToDealer(); err != nil {
			return err
		}
		if err := tx.dealToHand(0); err != nil {
			return err
		}
		if err := tx.dealToDealer(); err != nil {
			return err
		}

		playerBJ := evaluator.IsBlackjack(tx.round.hands[0].Cards)
		dealerBJ := evaluator.IsBlackjack(tx.round.dealer.Cards)
		if playerBJ || dealerBJ {
			tx.settleNaturals(playerBJ, dealerBJ)
			return nil
		}

		tx.round.phase = PlayerTurn
		tx.round.active = 0
		tx.emit(HandActivatedEvent{HandIndex: 0})
		return nil
	})
}

// Hit draws one card into the active hand. A bust finishes the hand.
// Reaching 21 does not stand automatically.
func (e *Engine) Hit() (Snapshot, error) {
	return e.apply(func(tx *txn) error {
		hand, err := tx.requirePlayerTurn(Hit)
		if err != nil {
			return err
		}

		idx := tx.round.active
		if err := tx.dealToHand(idx); err != nil {
			return err
		}
		if evaluator.IsBusted(hand.Cards) {
			hand.Finished = true
			tx.emit(HandBustedEvent{HandIndex: idx, Value: hand.Value()})
			return tx.advance()
		}
		return nil
	})
}

// Stand finishes the active hand.
func (e *Engine) Stand() (Snapshot, error) {
	return e.apply(func(tx *txn) error {
		hand, err := tx.requirePlayerTurn(Stand)
		if err != nil {
			return err
		}
		hand.Finished = true
		return tx.advance()
	})
}

// DoubleDown doubles the active hand's bet, draws exactly one card and
// finishes the hand whatever the card.
func (e *Engine) DoubleDown() (Snapshot, error) {
	return e.apply(func(tx *txn) error {
		hand, err := tx.requirePlayerTurn(Double)
		if err != nil {
			return err
		}
		if len(hand.Cards) != 2 {
			return fmt.Errorf("%w: can only double on two cards, hand has %d", ErrIllegalAction, len(hand.Cards))
		}
		if hand.Doubled {
			return fmt.Errorf("%w: hand already doubled", ErrIllegalAction)
		}
		if tx.balance < hand.Bet {
			return fmt.Errorf("%w: doubling needs %d, balance is %d", ErrInsufficientBalance, hand.Bet, tx.balance)
		}

		idx := tx.round.active
		tx.balance -= hand.Bet
		tx.round.staked += hand.Bet
		hand.Bet *= 2
		hand.Doubled = true
		tx.emit(HandDoubledEvent{HandIndex: idx, Bet: hand.Bet})

		if err := tx.dealToHand(idx); err != nil {
			return err
		}
		hand.Finished = true
		if evaluator.IsBusted(hand.Cards) {
			tx.emit(HandBustedEvent{HandIndex: idx, Value: hand.Value()})
		}
		return tx.advance()
	})
}

// Split turns the opening pair into two hands at the same stake and deals
// one card to each. Only one split per round is allowed.
func (e *Engine) Split() (Snapshot, error) {
	return e.apply(func(tx *txn) error {
		hand, err := tx.requirePlayerTurn(Split)
		if err != nil {
			return err
		}
		if len(tx.round.hands) != 1 {
			return fmt.Errorf("%w: hands can only be split once per round", ErrIllegalAction)
		}
		if !hand.isPair() {
			return fmt.Errorf("%w: split needs two cards of the same rank", ErrIllegalAction)
		}
		if tx.balance < hand.Bet {
			return fmt.Errorf("%w: splitting needs %d, balance is %d", ErrInsufficientBalance, hand.Bet, tx.balance)
		}

		bet := hand.Bet
		tx.balance -= bet
		tx.round.staked += bet
		tx.round.hands = []*Hand{
			{Cards: []deck.Card{hand.Cards[0]}, Bet: bet},
			{Cards: []deck.Card{hand.Cards[1]}, Bet: bet},
		}
		tx.emit(HandSplitEvent{Bet: bet})

		if err := tx.dealToHand(0); err != nil {
			return err
		}
		if err := tx.dealToHand(1); err != nil {
			return err
		}

		tx.round.active = 0
		tx.emit(HandActivatedEvent{HandIndex: 0})
		return nil
	})
}

// DealerStep performs a single dealer action: reveal the hole card, draw one
// card, or stand and settle. It reports whether the round is now settled.
// Only meaningful with WithSteppedDealer; otherwise the dealer has already
// finished by the time a command returns.
func (e *Engine) DealerStep() (Snapshot, bool, error) {
	var settled bool
	snap, err := e.apply(func(tx *txn) error {
		if tx.round == nil || tx.round.phase != DealerTurn {
			return fmt.Errorf("%w: dealer does not act in phase %s", ErrIllegalAction, e.Phase())
		}
		done, err := tx.dealerStep()
		settled = done
		return err
	})
	return snap, settled, err
}

// Reset starts over with a new balance and a freshly composed shoe. It is
// rejected while a round is in progress.
func (e *Engine) Reset(balance int) error {
	_, err := e.apply(func(tx *txn) error {
		if tx.round != nil && !tx.round.phase.IsTerminal() {
			return fmt.Errorf("%w: cannot reset during round %s", ErrIllegalAction, tx.round.id)
		}
		if balance <= 0 {
			return fmt.Errorf("%w: balance must be positive, got %d", ErrInvalidBalance, balance)
		}
		tx.balance = balance
		tx.round = nil
		tx.shoe.Recompose()
		tx.logger.Debug("Engine reset", "balance", balance)
		return nil
	})
	return err
}

// ValidActions returns the decisions available to the active hand.
func (e *Engine) ValidActions() []Action {
	return validActions(e.state.round, e.state.balance)
}

func validActions(r *round, balance int) []Action {
	if r == nil || r.phase != PlayerTurn {
		return nil
	}
	hand := r.activeHand()
	if hand == nil || hand.Finished {
		return nil
	}

	actions := []Action{Hit, Stand}
	if hand.canDouble(balance) {
		actions = append(actions, Double)
	}
	if len(r.hands) == 1 && hand.isPair() && balance >= hand.Bet {
		actions = append(actions, Split)
	}
	return actions
}

func (tx *txn) emit(event GameEvent) {
	tx.events = append(tx.events, withRoundID(event, tx.round.id))
}

func (tx *txn) requirePlayerTurn(action Action) (*Hand, error) {
	if tx.round == nil || tx.round.phase != PlayerTurn {
		phase := AwaitingBet
		if tx.round != nil {
			phase = tx.round.phase
		}
		return nil, fmt.Errorf("%w: cannot %s during %s", ErrIllegalAction, action, phase)
	}
	hand := tx.round.activeHand()
	if hand == nil || hand.Finished {
		return nil, fmt.Errorf("%w: no active hand", ErrIllegalAction)
	}
	return hand, nil
}

func (tx *txn) draw() (deck.Card, error) {
	if tx.shoe.Replenish() {
		tx.emit(ReshuffledEvent{Remaining: tx.shoe.Remaining()})
		tx.logger.Debug("Reshuffled shoe", "round", tx.round.id, "cards", tx.shoe.Remaining())
	}
	card, err := tx.shoe.Draw()
	if err != nil {
		return deck.Card{}, fmt.Errorf("round %s: %w", tx.round.id, err)
	}
	return card, nil
}

func (tx *txn) dealToHand(idx int) error {
	card, err := tx.draw()
	if err != nil {
		return err
	}
	hand := tx.round.hands[idx]
	hand.Cards = append(hand.Cards, card)
	tx.emit(CardDealtEvent{HandIndex: idx, Card: card})
	return nil
}

func (tx *txn) dealToDealer() error {
	card, err := tx.draw()
	if err != nil {
		return err
	}
	dealer := &tx.round.dealer
	dealer.Cards = append(dealer.Cards, card)
	concealed := len(dealer.Cards) == 2 && !dealer.Revealed
	tx.emit(CardDealtEvent{HandIndex: DealerIndex, Card: card, Concealed: concealed})
	return nil
}

// advance moves to the next unfinished hand, searching forward from the
// active hand first and then from the start, or hands over to the dealer.
func (tx *txn) advance() error {
	r := tx.round
	for i := r.active + 1; i < len(r.hands); i++ {
		if !r.hands[i].Finished {
			r.active = i
			tx.emit(HandActivatedEvent{HandIndex: i})
			return nil
		}
	}
	for i := 0; i < r.active; i++ {
		if !r.hands[i].Finished {
			r.active = i
			tx.emit(HandActivatedEvent{HandIndex: i})
			return nil
		}
	}

	r.phase = DealerTurn
	tx.logger.Debug("Dealer turn", "round", r.id)
	if tx.stepped {
		return nil
	}
	return tx.playDealer()
}

package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type StartData struct {
	Bet int `json:"bet,omitempty"` // Zero uses the table's default bet
}

type ResetData struct {
	Balance int `json:"balance,omitempty"` // Zero uses the starting balance
}

// Server → Client Messages

type WelcomeData struct {
	SessionID  string       `json:"sessionId"`
	Decks      int          `json:"decks"`
	DefaultBet int          `json:"defaultBet"`
	Snapshot   SnapshotData `json:"snapshot"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeInvalidBet          = "invalid_bet"
	CodeIllegalAction       = "illegal_action"
	CodeInsufficientBalance = "insufficient_balance"
	CodeInvalidBalance      = "invalid_balance"
	CodeEmptyShoe           = "empty_shoe"
	CodeInvalidMessage      = "invalid_message"
	CodeUnknownMessageType  = "unknown_message_type"
	CodeSessionClosed       = "session_closed"
	CodeInternal            = "internal_error"
)

// ErrorCode maps an engine rejection to its wire code
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidBet):
		return CodeInvalidBet
	case errors.Is(err, game.ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, game.ErrInvalidBalance):
		return CodeInvalidBalance
	case errors.Is(err, game.ErrIllegalAction):
		return CodeIllegalAction
	case errors.Is(err, deck.ErrEmptyShoe):
		return CodeEmptyShoe
	case errors.Is(err, session.ErrClosed):
		return CodeSessionClosed
	default:
		return CodeInternal
	}
}

type CardData struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
	Text string `json:"text"`
}

type HandData struct {
	Cards    []CardData  `json:"cards"`
	Bet      int         `json:"bet"`
	Value    int         `json:"value"`
	Soft     bool        `json:"soft"`
	Status   string      `json:"status"`
	Doubled  bool        `json:"doubled"`
	Finished bool        `json:"finished"`
	Result   game.Result `json:"result"`
	Payout   int         `json:"payout"`
}

// DealerData only ever carries visible cards. While the hole card is
// concealed Value covers the up-card alone.
type DealerData struct {
	Cards         []CardData `json:"cards"`
	HoleConcealed bool       `json:"holeConcealed"`
	Value         int        `json:"value"`
}

type SnapshotData struct {
	RoundID       string        `json:"roundId,omitempty"`
	Phase         game.Phase    `json:"phase"`
	Balance       int           `json:"balance"`
	ActiveHand    int           `json:"activeHand"`
	Hands         []HandData    `json:"hands"`
	Dealer        DealerData    `json:"dealer"`
	ValidActions  []game.Action `json:"validActions"`
	Staked        int           `json:"staked"`
	Paid          int           `json:"paid"`
	ShoeRemaining int           `json:"shoeRemaining"`
	Cause         string        `json:"cause,omitempty"`
}

// Event payloads, sent with the event type as the message type

type RoundStartedData struct {
	RoundID string `json:"roundId"`
	Bet     int    `json:"bet"`
	Balance int    `json:"balance"`
}

// CardDealtData omits the card when it is the concealed hole card
type CardDealtData struct {
	RoundID   string    `json:"roundId"`
	HandIndex int       `json:"handIndex"`
	ToDealer  bool      `json:"toDealer"`
	Card      *CardData `json:"card,omitempty"`
	Concealed bool      `json:"concealed"`
}

type HandEventData struct {
	RoundID   string `json:"roundId"`
	HandIndex int    `json:"handIndex"`
	Value     int    `json:"value,omitempty"`
	Bet       int    `json:"bet,omitempty"`
}

type DealerRevealedData struct {
	RoundID string     `json:"roundId"`
	Cards   []CardData `json:"cards"`
	Value   int        `json:"value"`
}

type ReshuffledData struct {
	RoundID   string `json:"roundId"`
	Remaining int    `json:"remaining"`
}

type OutcomeData struct {
	HandIndex int         `json:"handIndex"`
	Result    game.Result `json:"result"`
	Bet       int         `json:"bet"`
	Payout    int         `json:"payout"`
	Net       int         `json:"net"`
	Value     int         `json:"value"`
}

type RoundSettledData struct {
	RoundID     string        `json:"roundId"`
	Outcomes    []OutcomeData `json:"outcomes"`
	DealerValue int           `json:"dealerValue"`
	Staked      int           `json:"staked"`
	Paid        int           `json:"paid"`
	Net         int           `json:"net"`
	Balance     int           `json:"balance"`
}

// Helper functions to convert between internal types and message types

func CardFromGame(c deck.Card) CardData {
	return CardData{Rank: c.Rank.String(), Suit: c.Suit.String(), Text: c.String()}
}

func CardsFromGame(cards []deck.Card) []CardData {
	out := make([]CardData, len(cards))
	for i, c := range cards {
		out[i] = CardFromGame(c)
	}
	return out
}

// SnapshotFromGame converts a snapshot, dropping the hole card while it is
// concealed.
func SnapshotFromGame(snap game.Snapshot) SnapshotData {
	hands := make([]HandData, len(snap.Hands))
	for i, h := range snap.Hands {
		hands[i] = HandData{
			Cards:    CardsFromGame(h.Cards),
			Bet:      h.Bet,
			Value:    h.Value,
			Soft:     h.Soft,
			Status:   h.Status.String(),
			Doubled:  h.Doubled,
			Finished: h.Finished,
			Result:   h.Result,
			Payout:   h.Payout,
		}
	}

	actions := snap.ValidActions
	if actions == nil {
		actions = []game.Action{}
	}

	return SnapshotData{
		RoundID:    snap.RoundID,
		Phase:      snap.Phase,
		Balance:    snap.Balance,
		ActiveHand: snap.ActiveHand,
		Hands:      hands,
		Dealer: DealerData{
			Cards:         CardsFromGame(snap.Dealer.Visible()),
			HoleConcealed: snap.Dealer.HoleConcealed,
			Value:         snap.Dealer.Value,
		},
		ValidActions:  actions,
		Staked:        snap.Staked,
		Paid:          snap.Paid,
		ShoeRemaining: snap.ShoeRemaining,
	}
}

// EventFromGame converts an engine event into its message type and payload
func EventFromGame(event game.GameEvent) (MessageType, any) {
	mt := MessageType(event.EventType().String())

	switch e := event.(type) {
	case game.RoundStartedEvent:
		return mt, RoundStartedData{RoundID: e.RoundID, Bet: e.Bet, Balance: e.Balance}
	case game.CardDealtEvent:
		data := CardDealtData{
			RoundID:   e.RoundID,
			HandIndex: e.HandIndex,
			ToDealer:  e.ToDealer(),
			Concealed: e.Concealed,
		}
		if !e.Concealed {
			card := CardFromGame(e.Card)
			data.Card = &card
		}
		return mt, data
	case game.HandActivatedEvent:
		return mt, HandEventData{RoundID: e.RoundID, HandIndex: e.HandIndex}
	case game.HandBustedEvent:
		return mt, HandEventData{RoundID: e.RoundID, HandIndex: e.HandIndex, Value: e.Value}
	case game.HandDoubledEvent:
		return mt, HandEventData{RoundID: e.RoundID, HandIndex: e.HandIndex, Bet: e.Bet}
	case game.HandSplitEvent:
		return mt, HandEventData{RoundID: e.RoundID, Bet: e.Bet}
	case game.DealerRevealedEvent:
		return mt, DealerRevealedData{RoundID: e.RoundID, Cards: CardsFromGame(e.Cards), Value: e.Value}
	case game.ReshuffledEvent:
		return mt, ReshuffledData{RoundID: e.RoundID, Remaining: e.Remaining}
	case game.RoundSettledEvent:
		outcomes := make([]OutcomeData, len(e.Outcomes))
		for i, o := range e.Outcomes {
			outcomes[i] = OutcomeData{
				HandIndex: o.HandIndex,
				Result:    o.Result,
				Bet:       o.Bet,
				Payout:    o.Payout,
				Net:       o.Net(),
				Value:     o.Value,
			}
		}
		return mt, RoundSettledData{
			RoundID:     e.RoundID,
			Outcomes:    outcomes,
			DealerValue: e.DealerValue,
			Staked:      e.Staked,
			Paid:        e.Paid,
			Net:         e.Net(),
			Balance:     e.Balance,
		}
	default:
		return mt, event
	}
}

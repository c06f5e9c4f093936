package game

import (
	"github.com/lox/blackjack/internal/deck"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for round events
const (
	EventTypeRoundStarted   EventType = "round_started"
	EventTypeCardDealt      EventType = "card_dealt"
	EventTypeHandActivated  EventType = "hand_activated"
	EventTypeHandBusted     EventType = "hand_busted"
	EventTypeHandDoubled    EventType = "hand_doubled"
	EventTypeHandSplit      EventType = "hand_split"
	EventTypeDealerRevealed EventType = "dealer_revealed"
	EventTypeReshuffled     EventType = "reshuffled"
	EventTypeRoundSettled   EventType = "round_settled"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents anything observable that happens during a round
type GameEvent interface {
	EventType() EventType
}

// DealerIndex is the HandIndex used for cards dealt to the dealer.
const DealerIndex = -1

// RoundStartedEvent is published when a bet is accepted
type RoundStartedEvent struct {
	RoundID string
	Bet     int
	Balance int
}

func (e RoundStartedEvent) EventType() EventType { return EventTypeRoundStarted }

// CardDealtEvent is published for every card leaving the shoe
type CardDealtEvent struct {
	RoundID   string
	HandIndex int // DealerIndex for the dealer
	Card      deck.Card
	Concealed bool
}

func (e CardDealtEvent) EventType() EventType { return EventTypeCardDealt }

// ToDealer reports whether the card went to the dealer
func (e CardDealtEvent) ToDealer() bool { return e.HandIndex == DealerIndex }

// HandActivatedEvent is published when a player hand becomes the one to act
type HandActivatedEvent struct {
	RoundID   string
	HandIndex int
}

func (e HandActivatedEvent) EventType() EventType { return EventTypeHandActivated }

// HandBustedEvent is published when a player hand goes over 21
type HandBustedEvent struct {
	RoundID   string
	HandIndex int
	Value     int
}

func (e HandBustedEvent) EventType() EventType { return EventTypeHandBusted }

// HandDoubledEvent is published when a hand doubles down
type HandDoubledEvent struct {
	RoundID   string
	HandIndex int
	Bet       int
}

func (e HandDoubledEvent) EventType() EventType { return EventTypeHandDoubled }

// HandSplitEvent is published when the opening pair is split
type HandSplitEvent struct {
	RoundID string
	Bet     int
}

func (e HandSplitEvent) EventType() EventType { return EventTypeHandSplit }

// DealerRevealedEvent is published when the hole card is turned over
type DealerRevealedEvent struct {
	RoundID string
	Cards   []deck.Card
	Value   int
}

func (e DealerRevealedEvent) EventType() EventType { return EventTypeDealerRevealed }

// ReshuffledEvent is published when the shoe is recomposed before a draw
type ReshuffledEvent struct {
	RoundID   string
	Remaining int
}

func (e ReshuffledEvent) EventType() EventType { return EventTypeReshuffled }

// HandOutcome is the settlement of one player hand
type HandOutcome struct {
	HandIndex int
	Result    Result
	Bet       int
	Payout    int
	Value     int
}

// Net returns the hand's profit or loss
func (o HandOutcome) Net() int { return o.Payout - o.Bet }

// RoundSettledEvent is published once per round with every hand's outcome
type RoundSettledEvent struct {
	RoundID     string
	Outcomes    []HandOutcome
	DealerValue int
	Staked      int
	Paid        int
	Balance     int
}

func (e RoundSettledEvent) EventType() EventType { return EventTypeRoundSettled }

// Net returns the round's profit or loss
func (e RoundSettledEvent) Net() int { return e.Paid - e.Staked }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// SubscriberFunc adapts a function to EventSubscriber
type SubscriberFunc func(event GameEvent)

// OnEvent calls f(event)
func (f SubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation
type SimpleEventBus struct {
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{
		subscribers: make([]EventSubscriber, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events. SubscriberFunc
// values are not comparable and cannot be unsubscribed.
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers in subscription order
func (bus *SimpleEventBus) Publish(event GameEvent) {
	for _, subscriber := range bus.subscribers {
		subscriber.OnEvent(event)
	}
}

func withRoundID(event GameEvent, id string) GameEvent {
	switch e := event.(type) {
	case RoundStartedEvent:
		e.RoundID = id
		return e
	case CardDealtEvent:
		e.RoundID = id
		return e
	case HandActivatedEvent:
		e.RoundID = id
		return e
	case HandBustedEvent:
		e.RoundID = id
		return e
	case HandDoubledEvent:
		e.RoundID = id
		return e
	case HandSplitEvent:
		e.RoundID = id
		return e
	case DealerRevealedEvent:
		e.RoundID = id
		return e
	case ReshuffledEvent:
		e.RoundID = id
		return e
	case RoundSettledEvent:
		e.RoundID = id
		return e
	default:
		return event
	}
}

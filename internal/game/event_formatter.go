package game

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/deck"
)

// FormattingOptions controls how events are rendered
type FormattingOptions struct {
	ShowHoleCard bool // Print the dealer's concealed card instead of "??"
	Color        bool // Wrap red suits in ANSI color codes
}

// EventFormatter renders events as single human readable lines
type EventFormatter struct {
	opts FormattingOptions
}

// NewEventFormatter creates a new event formatter with the given options
func NewEventFormatter(opts FormattingOptions) *EventFormatter {
	return &EventFormatter{opts: opts}
}

// Format renders any event. Unknown events render as their type name.
func (ef *EventFormatter) Format(event GameEvent) string {
	switch e := event.(type) {
	case RoundStartedEvent:
		return fmt.Sprintf("New round, bet $%d (balance $%d)", e.Bet, e.Balance)
	case CardDealtEvent:
		card := ef.formatCard(e.Card)
		if e.Concealed && !ef.opts.ShowHoleCard {
			card = "??"
		}
		if e.ToDealer() {
			return fmt.Sprintf("Dealer is dealt %s", card)
		}
		return fmt.Sprintf("Hand %d is dealt %s", e.HandIndex+1, card)
	case HandActivatedEvent:
		return fmt.Sprintf("Now playing hand %d", e.HandIndex+1)
	case HandBustedEvent:
		return fmt.Sprintf("Hand %d busts with %d", e.HandIndex+1, e.Value)
	case HandDoubledEvent:
		return fmt.Sprintf("Hand %d doubles down, bet now $%d", e.HandIndex+1, e.Bet)
	case HandSplitEvent:
		return fmt.Sprintf("Split into two hands of $%d", e.Bet)
	case DealerRevealedEvent:
		return fmt.Sprintf("Dealer reveals %s (%d)", ef.formatCards(e.Cards), e.Value)
	case ReshuffledEvent:
		return fmt.Sprintf("Shoe reshuffled, %d cards", e.Remaining)
	case RoundSettledEvent:
		return ef.formatSettlement(e)
	default:
		return event.EventType().String()
	}
}

func (ef *EventFormatter) formatSettlement(e RoundSettledEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dealer %d.", e.DealerValue)
	for _, o := range e.Outcomes {
		fmt.Fprintf(&b, " Hand %d: %s (%+d).", o.HandIndex+1, o.Result, o.Net())
	}
	fmt.Fprintf(&b, " Balance $%d", e.Balance)
	return b.String()
}

func (ef *EventFormatter) formatCards(cards []deck.Card) string {
	formatted := make([]string, len(cards))
	for i, c := range cards {
		formatted[i] = ef.formatCard(c)
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

func (ef *EventFormatter) formatCard(card deck.Card) string {
	if ef.opts.Color && card.IsRed() {
		return fmt.Sprintf("\033[31m%s\033[0m", card.String())
	}
	return card.String()
}

// Package evaluator scores blackjack hands.
//
// All functions are pure and depend only on the multiset of ranks, never on
// card order or suit. An empty hand scores 0 and is neither busted nor a
// blackjack.
package evaluator

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
)

const (
	// Target is the best possible total.
	Target = 21

	aceBonus = 10
)

// Status is the categorical state of a hand
type Status int

const (
	Normal Status = iota
	Blackjack
	Busted
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case Normal:
		return "normal"
	case Blackjack:
		return "blackjack"
	case Busted:
		return "busted"
	default:
		return "unknown"
	}
}

// Value returns the best total for the cards and whether that total counts
// an Ace as 11. Every Ace starts at 1 and is promoted to 11 while the total
// stays at or below 21.
func Value(cards []deck.Card) (total int, soft bool) {
	aces := 0
	for _, c := range cards {
		if c.IsAce() {
			aces++
		}
		total += c.Value()
	}

	for range aces {
		if total+aceBonus > Target {
			break
		}
		total += aceBonus
		soft = true
	}
	return total, soft
}

// BestValue returns the highest total not exceeding 21 when one exists,
// otherwise the lowest (busted) total.
func BestValue(cards []deck.Card) int {
	total, _ := Value(cards)
	return total
}

// IsSoft reports whether the best total counts an Ace as 11.
func IsSoft(cards []deck.Card) bool {
	_, soft := Value(cards)
	return soft
}

// IsBlackjack reports whether cards is a two-card 21.
func IsBlackjack(cards []deck.Card) bool {
	return len(cards) == 2 && BestValue(cards) == Target
}

// IsBusted reports whether the best total exceeds 21.
func IsBusted(cards []deck.Card) bool {
	return BestValue(cards) > Target
}

// Classify returns the categorical status of the cards
func Classify(cards []deck.Card) Status {
	switch {
	case IsBlackjack(cards):
		return Blackjack
	case IsBusted(cards):
		return Busted
	default:
		return Normal
	}
}

// Describe renders the total the way a dealer would call it, e.g.
// "soft 17", "bust (24)" or "blackjack".
func Describe(cards []deck.Card) string {
	if len(cards) == 0 {
		return "0"
	}
	total, soft := Value(cards)
	switch {
	case IsBlackjack(cards):
		return "blackjack"
	case total > Target:
		return fmt.Sprintf("bust (%d)", total)
	case soft && total < Target:
		return fmt.Sprintf("soft %d", total)
	default:
		return fmt.Sprintf("%d", total)
	}
}

package bot

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

// BasicBot plays the standard basic strategy chart for a multi-deck shoe
// where the dealer stands on soft 17. When the chart says double or split
// but the engine does not offer it, the bot falls back to hitting (or
// standing on soft 18).
type BasicBot struct {
	logger *log.Logger
}

// NewBasicBot creates a new BasicBot instance
func NewBasicBot(logger *log.Logger) *BasicBot {
	return &BasicBot{logger: logger}
}

func (b *BasicBot) MakeDecision(snap game.Snapshot) Decision {
	hand, ok := snap.Active()
	if !ok {
		return Decision{Action: game.Stand, Reasoning: "basic-bot no active hand"}
	}
	up := upCardValue(snap)

	if snap.Can(game.Split) && shouldSplit(hand.Cards[0].Rank, up) {
		return b.decide(snap, game.Split, fmt.Sprintf("pair of %s vs %d", hand.Cards[0].Rank, up))
	}

	if hand.Soft {
		return b.decide(snap, softAction(snap, hand.Value, up), fmt.Sprintf("soft %d vs %d", hand.Value, up))
	}
	return b.decide(snap, hardAction(snap, hand.Value, up), fmt.Sprintf("hard %d vs %d", hand.Value, up))
}

func (b *BasicBot) decide(snap game.Snapshot, action game.Action, why string) Decision {
	b.logger.Debug("Basic strategy", "round", snap.RoundID, "situation", why, "action", action)
	return Decision{Action: action, Reasoning: "basic-bot " + why}
}

func between(v, lo, hi int) bool { return v >= lo && v <= hi }

func shouldSplit(rank deck.Rank, up int) bool {
	switch rank {
	case deck.Ace, deck.Eight:
		return true
	case deck.Nine:
		return between(up, 2, 6) || up == 8 || up == 9
	case deck.Seven, deck.Two, deck.Three:
		return between(up, 2, 7)
	case deck.Six:
		return between(up, 2, 6)
	case deck.Four:
		return up == 5 || up == 6
	default:
		return false
	}
}

func softAction(snap game.Snapshot, total, up int) game.Action {
	switch {
	case total >= 19:
		return game.Stand
	case total == 18:
		if between(up, 3, 6) {
			return fallback(snap, game.Double, game.Stand)
		}
		if up == 2 || up == 7 || up == 8 {
			return game.Stand
		}
		return game.Hit
	case total == 17:
		if between(up, 3, 6) {
			return fallback(snap, game.Double, game.Hit)
		}
		return game.Hit
	case total >= 15:
		if between(up, 4, 6) {
			return fallback(snap, game.Double, game.Hit)
		}
		return game.Hit
	default:
		if between(up, 5, 6) {
			return fallback(snap, game.Double, game.Hit)
		}
		return game.Hit
	}
}

func hardAction(snap game.Snapshot, total, up int) game.Action {
	switch {
	case total >= 17:
		return game.Stand
	case total >= 13:
		if between(up, 2, 6) {
			return game.Stand
		}
		return game.Hit
	case total == 12:
		if between(up, 4, 6) {
			return game.Stand
		}
		return game.Hit
	case total == 11:
		return fallback(snap, game.Double, game.Hit)
	case total == 10:
		if between(up, 2, 9) {
			return fallback(snap, game.Double, game.Hit)
		}
		return game.Hit
	case total == 9:
		if between(up, 3, 6) {
			return fallback(snap, game.Double, game.Hit)
		}
		return game.Hit
	default:
		return game.Hit
	}
}

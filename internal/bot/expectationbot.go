package bot

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/odds"
)

// ExpectationBot takes the offered action with the highest expected value
// for the cards it can see. Splits follow the basic strategy chart.
type ExpectationBot struct {
	decks  int
	logger *log.Logger
}

// NewExpectationBot creates a new ExpectationBot for a shoe of the given size
func NewExpectationBot(decks int, logger *log.Logger) *ExpectationBot {
	return &ExpectationBot{decks: decks, logger: logger}
}

func (x *ExpectationBot) MakeDecision(snap game.Snapshot) Decision {
	hand, ok := snap.Active()
	if !ok {
		return Decision{Action: game.Stand, Reasoning: "expectation-bot no active hand"}
	}
	if snap.Can(game.Split) && shouldSplit(hand.Cards[0].Rank, upCardValue(snap)) {
		return Decision{Action: game.Split, Reasoning: "expectation-bot splitting by chart"}
	}

	exp, ok := odds.ForSnapshot(snap, x.decks)
	if !ok {
		return Decision{Action: game.Stand, Reasoning: "expectation-bot nothing to evaluate"}
	}
	action := exp.Best(snap.ValidActions)
	x.logger.Debug("Expectation", "round", snap.RoundID, "stand", exp.Stand, "hit", exp.Hit, "double", exp.Double, "action", action)
	return Decision{
		Action:    action,
		Reasoning: fmt.Sprintf("expectation-bot %s %+.3f", action, exp.Of(action)),
	}
}

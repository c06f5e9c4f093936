package bot

import (
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/game"
)

// DealerBot mirrors the house: hit below 17, stand otherwise. It never
// doubles or splits.
type DealerBot struct {
	logger *log.Logger
}

// NewDealerBot creates a new DealerBot instance
func NewDealerBot(logger *log.Logger) *DealerBot {
	return &DealerBot{logger: logger}
}

func (d *DealerBot) MakeDecision(snap game.Snapshot) Decision {
	hand, ok := snap.Active()
	if !ok {
		return Decision{Action: game.Stand, Reasoning: "dealer-bot no active hand"}
	}
	if hand.Value < game.DealerStandsOn {
		return Decision{Action: game.Hit, Reasoning: "dealer-bot below 17"}
	}
	return Decision{Action: game.Stand, Reasoning: "dealer-bot standing"}
}

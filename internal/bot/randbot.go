package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/game"
)

// RandBot is a simple bot that makes uniform random legal actions
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger}
}

func (r *RandBot) MakeDecision(snap game.Snapshot) Decision {
	if len(snap.ValidActions) == 0 {
		return Decision{Action: game.Stand, Reasoning: "rand-bot no valid actions"}
	}
	action := snap.ValidActions[r.rng.IntN(len(snap.ValidActions))]
	return Decision{Action: action, Reasoning: "rand-bot random action"}
}

package game

import (
	"fmt"
	"strings"
)

// Phase is the state of the round state machine
type Phase int

const (
	AwaitingBet Phase = iota
	Dealing
	PlayerTurn
	DealerTurn
	Settled
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case AwaitingBet:
		return "awaiting_bet"
	case Dealing:
		return "dealing"
	case PlayerTurn:
		return "player_turn"
	case DealerTurn:
		return "dealer_turn"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether a new round may start from this phase.
func (p Phase) IsTerminal() bool {
	return p == AwaitingBet || p == Settled
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for _, candidate := range []Phase{AwaitingBet, Dealing, PlayerTurn, DealerTurn, Settled} {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Action is a player decision
type Action int

const (
	Hit Action = iota
	Stand
	Double
	Split
)

// String returns the string representation of an action
func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Double:
		return "double"
	case Split:
		return "split"
	default:
		return "unknown"
	}
}

// MarshalText encodes the action by name
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action using ParseAction
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction converts user input into an Action. Single letter shortcuts
// are accepted.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit", "h":
		return Hit, nil
	case "stand", "s", "stay":
		return Stand, nil
	case "double", "d", "doubledown", "double-down":
		return Double, nil
	case "split", "p":
		return Split, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Result is the settled outcome of a player hand
type Result int

const (
	Pending Result = iota
	Win
	Lose
	Push
	BlackjackWin
)

// String returns the string representation of a result
func (r Result) String() string {
	switch r {
	case Pending:
		return ""
	case Win:
		return "WIN"
	case Lose:
		return "LOSE"
	case Push:
		return "PUSH"
	case BlackjackWin:
		return "BLACKJACK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the result by name
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a result name
func (r *Result) UnmarshalText(text []byte) error {
	for _, candidate := range []Result{Pending, Win, Lose, Push, BlackjackWin} {
		if candidate.String() == string(text) {
			*r = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown result %q", text)
}

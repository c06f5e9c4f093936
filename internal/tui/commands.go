package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/blackjack/internal/game"
)

const helpText = `Commands:
  <enter>, deal [N]   deal a round, betting N or the last bet
  bet N               set the bet for the next round
  hit (h)             draw a card
  stand (s)           finish the hand
  double (d)          double the bet and draw one card
  split (p)           split a pair
  stats               session statistics
  reset [N]           start over with N (default the starting balance)
  quit                leave the table`

// processAction runs one typed command against the session
func (m *TUIModel) processAction(input string) tea.Cmd {
	parts := strings.Fields(strings.ToLower(input))

	var command string
	var args []string
	if len(parts) > 0 {
		command, args = parts[0], parts[1:]
	}

	if m.session == nil {
		m.logError(errors.New("no session attached"))
		return nil
	}

	switch command {
	case "quit", "exit", "q":
		m.quitting = true
		return tea.Sequence(tea.ClearScreen, tea.Quit)

	case "help":
		for _, line := range strings.Split(helpText, "\n") {
			m.AddLogEntry(InfoStyle.Render(line), line)
		}

	case "", "deal":
		if command == "" && !m.snap.Phase.IsTerminal() {
			m.AddLogEntry(InfoStyle.Render("Round in progress: hit, stand, double or split"),
				"Round in progress: hit, stand, double or split")
			return nil
		}
		if len(args) > 0 {
			bet, err := parseAmount(args[0])
			if err != nil {
				m.logError(err)
				return nil
			}
			m.lastBet = bet
		}
		m.run(func() (game.Snapshot, error) { return m.session.Start(m.lastBet) })

	case "bet":
		if len(args) == 0 {
			m.logError(errors.New("usage: bet N"))
			return nil
		}
		bet, err := parseAmount(args[0])
		if err != nil {
			m.logError(err)
			return nil
		}
		m.lastBet = bet
		m.AddLogEntry(fmt.Sprintf("Next bet $%d", bet))

	case "stats":
		m.showStats()

	case "reset":
		balance := m.startingBalance
		if len(args) > 0 {
			n, err := parseAmount(args[0])
			if err != nil {
				m.logError(err)
				return nil
			}
			balance = n
		}
		if m.run(func() (game.Snapshot, error) { return m.session.Reset(balance) }) {
			m.AddLogEntry(fmt.Sprintf("Table reset, balance $%d", balance))
		}

	default:
		action, err := game.ParseAction(command)
		if err != nil {
			m.logError(fmt.Errorf("unknown command %q, type 'help'", command))
			return nil
		}
		m.run(func() (game.Snapshot, error) { return m.session.Act(action) })
	}
	return nil
}

// run executes a session command and shows the rejection if there is one
func (m *TUIModel) run(command func() (game.Snapshot, error)) bool {
	snap, err := command()
	m.snap = snap
	if err != nil {
		m.logError(err)
		return false
	}
	return true
}

func (m *TUIModel) showStats() {
	stats := m.session.Stats()
	if stats.Rounds == 0 {
		m.AddLogEntry("No rounds played yet")
		return
	}
	lo, hi := stats.ConfidenceInterval95()
	lines := []string{
		fmt.Sprintf("Rounds %d, hands %d", stats.Rounds, stats.Hands),
		fmt.Sprintf("Win %.1f%%  Blackjack %.1f%%  Push %.1f%%  Lose %.1f%%",
			stats.Rate(game.Win)*100, stats.Rate(game.BlackjackWin)*100, stats.Rate(game.Push)*100, stats.Rate(game.Lose)*100),
		fmt.Sprintf("Net %+.2f bets, %+.3f per round (95%% CI %+.3f to %+.3f)", stats.AllUnits, stats.Mean(), lo, hi),
	}
	for _, line := range lines {
		m.AddLogEntry(line)
	}
}

func (m *TUIModel) logError(err error) {
	m.AddLogEntry(ErrorStyle.Render(err.Error()), err.Error())
}

func parseAmount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "$"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return n, nil
}

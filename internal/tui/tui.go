// Package tui is the terminal presentation for a single blackjack session.
// It renders snapshots and events and turns typed commands into session
// commands; it holds no game rules of its own.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
)

// Options configures the TUI
type Options struct {
	DefaultBet      int
	StartingBalance int
	TestMode        bool // Apply updates synchronously and capture the log
}

// TUIModel represents the Bubble Tea model for a blackjack session
type TUIModel struct {
	session   *session.Session
	logger    *log.Logger
	formatter *game.EventFormatter

	// UI components
	logViewport viewport.Model
	actionInput textinput.Model

	// State
	gameLog     []string
	updates     chan tea.Msg
	quitting    bool
	focusedPane int // 0 = log, 1 = input

	// Display state, refreshed from snapshots
	snap            game.Snapshot
	lastBet         int
	startingBalance int

	// Dimensions
	width       int
	height      int
	initialized bool // Track if viewport has been properly sized

	// Test mode
	testMode    bool
	capturedLog []string // For test assertions
}

type eventMsg struct{ event game.GameEvent }

type snapshotMsg struct {
	snap  game.Snapshot
	cause session.Cause
}

// NewTUIModel creates a TUI model. Attach a session before running it.
func NewTUIModel(logger *log.Logger, opts Options) *TUIModel {
	// Create viewport for game log with minimal initial size
	// Will be properly sized when WindowSizeMsg arrives
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 60
	ti.PromptStyle = PromptStyle
	ti.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))
	ti.Prompt = "> "

	return &TUIModel{
		logger:          logger.WithPrefix("tui"),
		formatter:       game.NewEventFormatter(game.FormattingOptions{}),
		logViewport:     vp,
		actionInput:     ti,
		gameLog:         []string{},
		updates:         make(chan tea.Msg, 256),
		focusedPane:     1, // Start with input focused
		lastBet:         opts.DefaultBet,
		startingBalance: opts.StartingBalance,
		testMode:        opts.TestMode,
		capturedLog:     []string{},
	}
}

// Attach binds the session the TUI plays and subscribes to its events.
// The session should be created with OnUpdate set to the model's OnUpdate.
func (m *TUIModel) Attach(s *session.Session) {
	m.session = s
	m.snap = s.Snapshot()
	s.Subscribe(m)
}

// OnEvent implements game.EventSubscriber
func (m *TUIModel) OnEvent(event game.GameEvent) {
	m.push(eventMsg{event: event})
}

// OnUpdate receives snapshots from dealer pacing and idle timeouts
func (m *TUIModel) OnUpdate(snap game.Snapshot, cause session.Cause) {
	m.push(snapshotMsg{snap: snap, cause: cause})
}

// push hands a message to the Bubble Tea loop without blocking the session
func (m *TUIModel) push(msg tea.Msg) {
	if m.testMode {
		m.apply(msg)
		return
	}
	select {
	case m.updates <- msg:
	default:
		m.logger.Warn("Dropped update, UI is not keeping up", "msg", fmt.Sprintf("%T", msg))
	}
}

// waitForUpdate returns a command that delivers the next session update
func (m *TUIModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// Init initializes the TUI model
func (m *TUIModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// Update handles messages in the TUI
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case eventMsg, snapshotMsg:
		m.apply(msg)
		return m, m.waitForUpdate()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			// Switch focus between log and input
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				input := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if cmd := m.processAction(input); cmd != nil {
					return m, cmd
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd

	// Only update input if it's focused
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// apply folds a session update into the display state
func (m *TUIModel) apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case eventMsg:
		line := m.formatter.Format(msg.event)
		switch msg.event.(type) {
		case game.RoundStartedEvent:
			m.AddLogEntry(HeaderStyle.Render(" "+line+" "), line)
		case game.RoundSettledEvent:
			m.AddLogEntry(SuccessStyle.Render(line), line)
		default:
			m.AddLogEntry(line)
		}
	case snapshotMsg:
		m.snap = msg.snap
		if msg.cause == session.CauseIdle {
			m.AddLogEntry(WarningStyle.Render("Stood after idle timeout"), "Stood after idle timeout")
		}
	}
}

// View renders the TUI
func (m *TUIModel) View() string {
	if m.quitting {
		return ""
	}

	// Don't render until we have valid dimensions
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Action pane (bottom, full width)
	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)

	actionPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(max(m.width-2, 1)).
		Height(max(actionHeight-2, 1)).
		Render(actionContent)

	// Sidebar pane (right side of log pane, same height as log pane)
	sidebarContent := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebarContent), 25)
	paneHeight := max(m.height-actionHeight-4, 1) // Account for borders and action pane

	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebarContent)

	// Log pane (top, fills height minus action pane)
	m.logViewport.SetContent(m.renderLogPane())
	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight

	// On first proper sizing, reset to top to avoid starting scrolled down
	if !m.initialized && m.logViewport.Width > 1 && m.logViewport.Height > 1 {
		m.logViewport.GotoTop()
		m.initialized = true
	}

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(paneHeight)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

// renderLogPane renders the game log pane content
func (m *TUIModel) renderLogPane() string {
	return strings.Join(m.gameLog, "\n")
}

// renderSidebarPane shows the balance and running session results
func (m *TUIModel) renderSidebarPane() string {
	var content strings.Builder

	content.WriteString(WarningStyle.Render(fmt.Sprintf("Balance: $%d", m.snap.Balance)))
	content.WriteString("\n")
	if m.snap.Staked > 0 && !m.snap.Phase.IsTerminal() {
		content.WriteString(WarningStyle.Render(fmt.Sprintf("In play: $%d", m.snap.Staked)))
		content.WriteString("\n")
	}
	content.WriteString(InfoStyle.Render(fmt.Sprintf("Next bet: $%d", m.lastBet)))
	content.WriteString("\n\n")

	if m.session != nil {
		stats := m.session.Stats()
		content.WriteString(InfoStyle.Render("This session:"))
		content.WriteString("\n")
		fmt.Fprintf(&content, "  Rounds: %d\n", stats.Rounds)
		fmt.Fprintf(&content, "  Won %d / Lost %d / Push %d\n",
			stats.Counts[game.Win]+stats.Counts[game.BlackjackWin], stats.Counts[game.Lose], stats.Counts[game.Push])
		fmt.Fprintf(&content, "  Blackjacks: %d\n", stats.Counts[game.BlackjackWin])
		fmt.Fprintf(&content, "  Net: %+.1f bets\n", stats.AllUnits)
	}

	content.WriteString("\n")
	content.WriteString(InfoStyle.Render(fmt.Sprintf("Shoe: %d cards", m.snap.ShoeRemaining)))
	return content.String()
}

// renderActionPane renders the table and the action input
func (m *TUIModel) renderActionPane() string {
	var content strings.Builder

	if len(m.snap.Hands) > 0 {
		content.WriteString(m.renderDealer())
		content.WriteString("\n")
		for i, hand := range m.snap.Hands {
			content.WriteString(m.renderHand(i, hand))
			content.WriteString("\n")
		}
	}

	switch m.snap.Phase {
	case game.PlayerTurn:
		content.WriteString(m.renderAvailableActions())
		m.actionInput.Placeholder = "hit, stand, double, split"
	case game.DealerTurn:
		content.WriteString(HandInfoStyle.Render("Dealer is playing..."))
		m.actionInput.Placeholder = ""
	default:
		content.WriteString(HandInfoStyle.Render("Place your bet"))
		m.actionInput.Placeholder = fmt.Sprintf("Enter to deal $%d, 'bet N', 'reset', 'stats', 'quit'", m.lastBet)
	}
	content.WriteString("\n")

	content.WriteString(m.actionInput.View())
	content.WriteString("\n")

	if m.focusedPane == 0 {
		content.WriteString(HelpStyle.Render("Log focused: ↑↓ scroll, PgUp/PgDn half page, Home/End, Tab to input"))
	} else {
		content.WriteString(HelpStyle.Render("Tab to scroll log • 'help' for commands • Ctrl+C to quit"))
	}

	return content.String()
}

func (m *TUIModel) renderDealer() string {
	dealer := m.snap.Dealer
	cards := m.formatCards(dealer.Visible())
	if dealer.HoleConcealed {
		cards = strings.TrimSuffix(cards, "]") + " " + HiddenCardStyle.Render("??") + "]"
	}
	return DealerInfoStyle.Render("Dealer: ") + cards + DealerInfoStyle.Render(fmt.Sprintf("  (%d)", dealer.Value))
}

func (m *TUIModel) renderHand(i int, hand game.HandView) string {
	marker := "  "
	if i == m.snap.ActiveHand {
		marker = "▶ "
	}

	value := fmt.Sprintf("%d", hand.Value)
	if hand.Soft {
		value = "soft " + value
	}

	line := fmt.Sprintf("%sHand %d: %s  (%s)  $%d", marker, i+1, m.formatCards(hand.Cards), value, hand.Bet)
	if hand.Doubled {
		line += " doubled"
	}
	if hand.Result != game.Pending {
		line += fmt.Sprintf("  %s %+d", hand.Result, hand.Payout-hand.Bet)
	}
	return HandInfoStyle.Render(line)
}

// renderAvailableActions renders available action buttons based on engine's valid actions
func (m *TUIModel) renderAvailableActions() string {
	var actions []string
	for _, action := range m.snap.ValidActions {
		switch action {
		case game.Hit:
			actions = append(actions, SuccessStyle.Render("[hit]"))
		case game.Stand:
			actions = append(actions, SuccessStyle.Render("[stand]"))
		case game.Double:
			actions = append(actions, WarningStyle.Render("[double]"))
		case game.Split:
			actions = append(actions, WarningStyle.Render("[split]"))
		}
	}
	return ActionsStyle.Render("Actions: " + strings.Join(actions, " "))
}

// formatCards formats cards with colors
func (m *TUIModel) formatCards(cards []deck.Card) string {
	var formatted []string
	for _, card := range cards {
		if card.IsRed() {
			formatted = append(formatted, RedCardStyle.Render(card.String()))
		} else {
			formatted = append(formatted, BlackCardStyle.Render(card.String()))
		}
	}
	return "[" + strings.Join(formatted, " ") + "]"
}

// AddLogEntry adds an entry to the game log. An optional plain variant is
// what test mode captures when the entry is styled.
func (m *TUIModel) AddLogEntry(entry string, plain ...string) {
	m.gameLog = append(m.gameLog, entry)

	// In test mode, also capture the log entry
	if m.testMode {
		if len(plain) > 0 {
			entry = plain[0]
		}
		m.capturedLog = append(m.capturedLog, entry)
		return // Skip UI updates in test mode
	}

	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))

	// Only call GotoBottom if viewport has valid dimensions
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// ClearLog clears the game log
func (m *TUIModel) ClearLog() {
	m.gameLog = []string{}
	m.capturedLog = []string{}
	m.logViewport.SetContent("")
}

// Snapshot returns the state the TUI is currently displaying
func (m *TUIModel) Snapshot() game.Snapshot {
	return m.snap
}

// GetCapturedLog returns the captured log entries (test mode only)
func (m *TUIModel) GetCapturedLog() []string {
	if !m.testMode {
		return nil
	}
	// Return a copy to prevent modification
	result := make([]string, len(m.capturedLog))
	copy(result, m.capturedLog)
	return result
}

// IsTestMode returns whether the TUI is in test mode
func (m *TUIModel) IsTestMode() bool {
	return m.testMode
}

// Execute runs a typed command outside the Bubble Tea loop (test mode only)
func (m *TUIModel) Execute(input string) error {
	if !m.testMode {
		return fmt.Errorf("command execution only available in test mode")
	}
	m.processAction(input)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/tui"
)

// PlayCmd runs an interactive table in the terminal
type PlayCmd struct {
	Balance     int    `help:"Starting balance (overrides config and the ledger)"`
	Bet         int    `help:"Default bet (overrides config)"`
	LogFile     string `help:"Log file path (overrides config, default blackjack.log)"`
	DealerDelay *int   `help:"Pause between dealer cards in milliseconds (overrides config)"`
	Fresh       bool   `help:"Ignore the ledger balance and start from the configured balance"`
}

// dealerDelay is the flag when given, otherwise server.dealer_delay_ms
func (c *PlayCmd) dealerDelay(cfg *config.Config) time.Duration {
	if c.DealerDelay != nil {
		return time.Duration(*c.DealerDelay) * time.Millisecond
	}
	return cfg.Server.DealerDelay()
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Bet > 0 {
		cfg.Table.DefaultBet = c.Bet
	}

	// The terminal belongs to the table, so logs always go to a file
	path := c.LogFile
	if path == "" {
		path = cfg.Logging.File
	}
	if path == "" {
		path = "blackjack.log"
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	logger := setupLogger(logFile, cfg)

	store, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	balance := cfg.Table.StartingBalance
	switch {
	case c.Balance > 0:
		balance = c.Balance
	case !c.Fresh:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		balance, err = ledger.ResumeBalance(ctx, store, balance)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to read ledger: %w", err)
		}
	}

	seed := randutil.Resolve(cfg.Table.Seed)
	clock := quartz.NewReal()

	model := tui.NewTUIModel(logger, tui.Options{
		DefaultBet:      cfg.Table.DefaultBet,
		StartingBalance: cfg.Table.StartingBalance,
	})
	sess := session.New(session.Options{
		Balance:            balance,
		Decks:              cfg.Table.Decks,
		ReshuffleThreshold: cfg.Table.ReshuffleThreshold,
		RNG:                randutil.New(seed),
		DealerDelay:        c.dealerDelay(cfg),
		IdleTimeout:        cfg.Server.IdleTimeoutDuration(),
		Clock:              clock,
		Logger:             logger,
		OnUpdate:           model.OnUpdate,
	})
	defer sess.Close()

	recorder := ledger.NewRecorder(store, clock, logger)
	sess.Subscribe(recorder)
	model.Attach(sess)

	logger.Info("Starting table",
		"balance", balance,
		"decks", cfg.Table.Decks,
		"seed", seed,
		"ledger", cfg.Ledger.Driver)

	model.AddLogEntry(tui.HeaderStyle.Render(" Blackjack "), "Blackjack")
	model.AddLogEntry(fmt.Sprintf("Balance $%d, bet $%d. Press enter to deal, type 'help' for commands.",
		balance, cfg.Table.DefaultBet))

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	totals := recorder.Totals()
	if totals.Rounds > 0 {
		fmt.Printf("Left the table with $%d after %d rounds in the ledger (net %+d)\n",
			sess.Snapshot().Balance, totals.Rounds, totals.Net())
	}
	return recorder.Err()
}

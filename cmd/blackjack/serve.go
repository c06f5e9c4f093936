package main

import (
	"fmt"
	"os"

	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/server"
)

// ServeCmd runs the WebSocket server, one table per connection
type ServeCmd struct {
	Addr        string `help:"Listen address (overrides config)"`
	DealerDelay *int   `help:"Pause between dealer cards in milliseconds (overrides config)"`
	IdleTimeout *int   `help:"Seconds before an idle hand is stood, 0 disables (overrides config)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.DealerDelay != nil {
		cfg.Server.DealerDelayMS = *c.DealerDelay
	}
	if c.IdleTimeout != nil {
		cfg.Server.IdleTimeout = *c.IdleTimeout
	}
	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	writer := os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}
	logger := setupLogger(writer, cfg)

	store, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer func() { _ = store.Close() }()

	table := server.TableConfigFromConfig(cfg)
	s := server.NewServer(table, logger, server.WithLedger(store))

	logger.Info("Starting blackjack server",
		"addr", addr,
		"decks", table.Decks,
		"starting_balance", table.StartingBalance,
		"default_bet", table.DefaultBet,
		"dealer_delay", table.DealerDelay,
		"idle_timeout", table.IdleTimeout,
		"ledger", cfg.Ledger.Driver)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	if err := s.ListenAndServe(ctx, addr); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

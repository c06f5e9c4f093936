package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/simulator"
)

// SimulateCmd plays many rounds with a built-in strategy
type SimulateCmd struct {
	Rounds   int    `default:"100000" help:"Number of rounds to simulate"`
	Strategy string `short:"s" default:"basic" help:"Strategy to play (${strategies})"`
	Bet      int    `default:"10" help:"Base bet per round"`
	Workers  int    `short:"w" help:"Parallel workers (default: number of CPUs)"`
	Verbose  bool   `help:"Log every decision"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}
	logger := setupLogger(os.Stderr, cfg)

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	seed := randutil.Resolve(cfg.Table.Seed)

	logger.Info("Starting simulation",
		"rounds", c.Rounds,
		"strategy", c.Strategy,
		"decks", cfg.Table.Decks,
		"workers", workers,
		"seed", seed)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()

	start := time.Now()
	sim := simulator.New(simulator.Config{
		Rounds:    c.Rounds,
		Strategy:  c.Strategy,
		Bet:       c.Bet,
		Decks:     cfg.Table.Decks,
		Threshold: cfg.Table.ReshuffleThreshold,
		Seed:      seed,
		Workers:   workers,
		Logger:    logger,
	})
	stats, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	elapsed := time.Since(start)
	simulator.PrintSummary(os.Stdout, stats, c.Strategy)
	fmt.Printf("\nCompleted in %s (%.0f rounds/sec, seed %d)\n",
		elapsed.Round(time.Millisecond), float64(stats.Rounds)/elapsed.Seconds(), seed)
	return nil
}

// Package simulator plays many rounds with a bot strategy and collects
// statistics on the results.
package simulator

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/statistics"
)

// bankrollRounds is how many base bets each worker starts with. Workers top
// up with Reset when they run low, so results never stop on ruin.
const bankrollRounds = 1000

// Config holds configuration for running simulations
type Config struct {
	Rounds    int
	Strategy  string
	Bet       int
	Decks     int
	Threshold int
	Seed      int64
	Workers   int
	Logger    *log.Logger
}

// Simulator runs blackjack round simulations
type Simulator struct {
	config Config
}

// New creates a new simulator with the given configuration. Zero values
// fall back to one worker, a bet of 10 and the standard shoe.
func New(config Config) *Simulator {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.Bet <= 0 {
		config.Bet = 10
	}
	if config.Decks <= 0 {
		config.Decks = deck.DefaultDecks
	}
	if config.Threshold <= 0 {
		config.Threshold = deck.DefaultReshuffleThreshold
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	return &Simulator{config: config}
}

// Run executes the simulation. Each worker owns an engine seeded from
// Seed+worker, so a given Seed and Workers pair always produces the same
// statistics.
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	if _, err := bot.New(s.config.Strategy, randutil.New(0), s.config.Logger); err != nil {
		return nil, err
	}

	shards := make([][]statistics.RoundResult, s.config.Workers)
	g, ctx := errgroup.WithContext(ctx)

	for w := 0; w < s.config.Workers; w++ {
		rounds := s.config.Rounds / s.config.Workers
		if w < s.config.Rounds%s.config.Workers {
			rounds++
		}
		g.Go(func() error {
			results, err := s.runShard(ctx, w, rounds)
			shards[w] = results
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, shard := range shards {
		for _, r := range shard {
			stats.Add(r)
		}
	}

	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	return stats, nil
}

func (s *Simulator) runShard(ctx context.Context, worker, rounds int) ([]statistics.RoundResult, error) {
	seed := s.config.Seed + int64(worker)
	logger := s.config.Logger.With("worker", worker)

	strategy, err := bot.New(s.config.Strategy, randutil.New(^seed), logger)
	if err != nil {
		return nil, err
	}

	var settled *game.RoundSettledEvent
	bus := game.NewEventBus()
	bus.Subscribe(game.SubscriberFunc(func(ev game.GameEvent) {
		if e, ok := ev.(game.RoundSettledEvent); ok {
			settled = &e
		}
	}))

	bankroll := s.config.Bet * bankrollRounds
	engine := game.NewEngine(
		game.WithBalance(bankroll),
		game.WithDecks(s.config.Decks),
		game.WithReshuffleThreshold(s.config.Threshold),
		game.WithRNG(randutil.New(seed)),
		game.WithEventBus(bus),
		game.WithLogger(logger),
	)

	results := make([]statistics.RoundResult, 0, rounds)
	for i := 0; i < rounds; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Splitting and doubling can need up to three more bets.
		if engine.Balance() < 4*s.config.Bet {
			if err := engine.Reset(bankroll); err != nil {
				return nil, err
			}
		}

		settled = nil
		natural, err := playRound(engine, strategy, s.config.Bet)
		if err != nil {
			return nil, fmt.Errorf("worker %d round %d (seed %d): %w", worker, i+1, seed, err)
		}
		if settled == nil {
			return nil, fmt.Errorf("worker %d round %d (seed %d): round did not settle", worker, i+1, seed)
		}

		r := statistics.FromSettlement(*settled, s.config.Bet, natural)
		r.Seed = seed
		r.Round = i + 1
		results = append(results, r)
	}

	logger.Debug("Shard complete", "rounds", rounds, "balance", engine.Balance())
	return results, nil
}

// playRound plays one round to settlement and reports whether it settled on
// the deal.
func playRound(engine *game.Engine, strategy bot.Strategy, bet int) (bool, error) {
	snap, err := engine.StartRound(bet)
	if err != nil {
		return false, err
	}
	natural := snap.Phase == game.Settled

	for snap.Phase == game.PlayerTurn {
		decision := strategy.MakeDecision(snap)
		switch decision.Action {
		case game.Hit:
			snap, err = engine.Hit()
		case game.Stand:
			snap, err = engine.Stand()
		case game.Double:
			snap, err = engine.DoubleDown()
		case game.Split:
			snap, err = engine.Split()
		}
		if err != nil {
			return false, fmt.Errorf("%s (%s): %w", decision.Action, decision.Reasoning, err)
		}
	}
	return natural, nil
}

// PrintSummary writes a summary of simulation results
func PrintSummary(w io.Writer, stats *statistics.Statistics, strategy string) {
	mean := stats.Mean()
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== FINAL RESULTS for %s strategy ===\n", strategy)
	fmt.Fprintf(w, "Rounds played: %d (%d hands)\n", stats.Rounds, stats.Hands)

	fmt.Fprintf(w, "\n=== STATISTICAL RESULTS ===\n")
	fmt.Fprintf(w, "Mean: %.4f units/round (%.2f%% edge)\n", mean, mean*100)
	fmt.Fprintf(w, "Median: %.4f units/round\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.4f units\n", stats.StdDev())
	fmt.Fprintf(w, "Std Error: %.4f units\n", stats.StdError())
	fmt.Fprintf(w, "95%% CI: [%.4f, %.4f] units/round\n", low, high)
	fmt.Fprintf(w, "Percentiles: P5=%.3f, P25=%.3f, P75=%.3f, P95=%.3f\n",
		stats.Percentile(0.05), stats.Percentile(0.25), stats.Percentile(0.75), stats.Percentile(0.95))

	fmt.Fprintf(w, "\n=== OUTCOMES ===\n")
	for _, r := range []game.Result{game.BlackjackWin, game.Win, game.Push, game.Lose} {
		fmt.Fprintf(w, "%-9s %6d hands (%.1f%%)\n", r, stats.Counts[r], stats.Rate(r)*100)
	}

	fmt.Fprintf(w, "\n=== DECISION ANALYSIS ===\n")
	fmt.Fprintf(w, "Naturals: %d rounds, %.2f units\n", stats.Naturals, stats.NaturalUnits)
	fmt.Fprintf(w, "Played out: %d rounds, %.2f units\n", stats.Rounds-stats.Naturals, stats.PlayedUnits)
	fmt.Fprintf(w, "Splits: %d rounds, %.2f units\n", stats.Splits, stats.SplitUnits)
	fmt.Fprintf(w, "Doubles: %d rounds, %.2f units\n", stats.Doubles, stats.DoubledUnits)
	fmt.Fprintf(w, "Best round: %+.1f units, worst round: %+.1f units\n", stats.MaxWin, stats.MaxLoss)
}

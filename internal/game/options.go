package game

import (
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lox/blackjack/internal/deck"
)

// DefaultBalance is the starting balance when none is configured.
const DefaultBalance = 1000

// Option configures an Engine during creation.
type Option func(*engineConfig)

type engineConfig struct {
	balance   int
	decks     int
	threshold int
	rng       *rand.Rand
	shoe      *deck.Shoe // If provided, overrides decks/threshold/rng
	logger    *log.Logger
	bus       EventBus
	stepped   bool
	newID     func() string
}

// NewEngine creates an engine with no round in progress.
//
// Example usage:
//
//	// Production - six deck shoe, time-seeded
//	e := NewEngine(WithBalance(500))
//
//	// Testing - scripted cards
//	e := NewEngine(WithShoe(deck.NewStackedShoe(deck.MustParseCards("As 9d Kh 8c")...)))
func NewEngine(opts ...Option) *Engine {
	cfg := &engineConfig{
		balance:   DefaultBalance,
		decks:     deck.DefaultDecks,
		threshold: deck.DefaultReshuffleThreshold,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.balance < 0 {
		panic("balance must not be negative")
	}

	shoe := cfg.shoe
	if shoe == nil {
		shoe = deck.NewShoe(cfg.decks, cfg.threshold, cfg.rng)
	}

	logger := cfg.logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	bus := cfg.bus
	if bus == nil {
		bus = NewEventBus()
	}

	newID := cfg.newID
	if newID == nil {
		newID = newRoundID
	}

	return &Engine{
		state: tableState{
			shoe:    shoe,
			balance: cfg.balance,
		},
		bus:     bus,
		logger:  logger.WithPrefix("engine"),
		stepped: cfg.stepped,
		newID:   newID,
	}
}

func newRoundID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Option Functions

// WithBalance sets the starting balance. Default is 1000.
func WithBalance(balance int) Option {
	return func(c *engineConfig) {
		c.balance = balance
	}
}

// WithDecks sets how many decks compose the shoe. Default is 6.
func WithDecks(decks int) Option {
	return func(c *engineConfig) {
		c.decks = decks
	}
}

// WithReshuffleThreshold sets the low-water mark that triggers a
// recomposition before the next draw. Default is 15.
func WithReshuffleThreshold(threshold int) Option {
	return func(c *engineConfig) {
		c.threshold = threshold
	}
}

// WithRNG sets the random source used to shuffle every composed shoe.
func WithRNG(rng *rand.Rand) Option {
	return func(c *engineConfig) {
		c.rng = rng
	}
}

// WithShoe sets a specific shoe, typically deck.NewStackedShoe in tests.
func WithShoe(shoe *deck.Shoe) Option {
	return func(c *engineConfig) {
		c.shoe = shoe
	}
}

// WithLogger sets the logger. The engine only logs at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithEventBus publishes events on an existing bus.
func WithEventBus(bus EventBus) Option {
	return func(c *engineConfig) {
		c.bus = bus
	}
}

// WithSteppedDealer leaves rounds in DealerTurn until DealerStep is called.
func WithSteppedDealer() Option {
	return func(c *engineConfig) {
		c.stepped = true
	}
}

// WithRoundIDs overrides round ID generation.
func WithRoundIDs(newID func() string) Option {
	return func(c *engineConfig) {
		c.newID = newID
	}
}

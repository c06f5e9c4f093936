// Package session drives a single player's engine for an interactive
// presentation. It paces the dealer, stands idle hands and keeps running
// statistics for the session.
package session

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/statistics"
)

// ErrClosed is returned for commands sent after Close
var ErrClosed = errors.New("session closed")

// Cause says why an update was pushed
type Cause string

const (
	CauseDealer Cause = "dealer" // a paced dealer step
	CauseIdle   Cause = "idle"   // the active hand was stood for the player
)

// UpdateFunc receives snapshots produced outside a command, from dealer
// pacing and idle timeouts. It is called with the session lock held and
// must not call back into the session.
type UpdateFunc func(snap game.Snapshot, cause Cause)

// Options configures a Session
type Options struct {
	Balance            int
	Decks              int
	ReshuffleThreshold int
	RNG                *rand.Rand
	Shoe               *deck.Shoe // overrides Decks, ReshuffleThreshold and RNG
	RoundIDs           func() string

	// DealerDelay is the pause between dealer steps. Zero plays the dealer
	// out before the command that ended the player turn returns.
	DealerDelay time.Duration
	// IdleTimeout stands the active hand after this long without a
	// command. Zero disables it.
	IdleTimeout time.Duration

	Clock    quartz.Clock
	Logger   *log.Logger
	OnUpdate UpdateFunc
}

// Session owns one engine. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	engine *game.Engine
	clock  quartz.Clock
	logger *log.Logger

	dealerDelay time.Duration
	idleTimeout time.Duration
	onUpdate    UpdateFunc

	dealerTimer *quartz.Timer
	idleTimer   *quartz.Timer
	timerGen    uint64
	closed      bool

	stats   *statistics.Statistics
	bet     int
	natural bool
}

// New creates a session with no round in progress
func New(opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	decks := opts.Decks
	if decks < 1 {
		decks = deck.DefaultDecks
	}

	engineOpts := []game.Option{
		game.WithSteppedDealer(),
		game.WithLogger(logger),
		game.WithDecks(decks),
		game.WithReshuffleThreshold(opts.ReshuffleThreshold),
	}
	if opts.Balance > 0 {
		engineOpts = append(engineOpts, game.WithBalance(opts.Balance))
	}
	if opts.RNG != nil {
		engineOpts = append(engineOpts, game.WithRNG(opts.RNG))
	}
	if opts.Shoe != nil {
		engineOpts = append(engineOpts, game.WithShoe(opts.Shoe))
	}
	if opts.RoundIDs != nil {
		engineOpts = append(engineOpts, game.WithRoundIDs(opts.RoundIDs))
	}

	s := &Session{
		engine:      game.NewEngine(engineOpts...),
		clock:       clock,
		logger:      logger.WithPrefix("session"),
		dealerDelay: opts.DealerDelay,
		idleTimeout: opts.IdleTimeout,
		onUpdate:    opts.OnUpdate,
		stats:       &statistics.Statistics{},
	}
	s.engine.Events().Subscribe(game.SubscriberFunc(s.track))
	return s
}

// Subscribe registers for engine events. Subscribers run with the session
// lock held.
func (s *Session) Subscribe(sub game.EventSubscriber) {
	s.engine.Events().Subscribe(sub)
}

// Snapshot returns the current state
func (s *Session) Snapshot() game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// Start places a bet and deals
func (s *Session) Start(bet int) (game.Snapshot, error) {
	return s.do(func() (game.Snapshot, error) { return s.engine.StartRound(bet) })
}

// Act applies a player decision to the active hand
func (s *Session) Act(action game.Action) (game.Snapshot, error) {
	return s.do(func() (game.Snapshot, error) {
		switch action {
		case game.Hit:
			return s.engine.Hit()
		case game.Stand:
			return s.engine.Stand()
		case game.Double:
			return s.engine.DoubleDown()
		case game.Split:
			return s.engine.Split()
		default:
			return s.engine.Snapshot(), fmt.Errorf("%w: unknown action %d", game.ErrIllegalAction, action)
		}
	})
}

// Reset starts over with a new balance. Statistics are kept.
func (s *Session) Reset(balance int) (game.Snapshot, error) {
	return s.do(func() (game.Snapshot, error) {
		if err := s.engine.Reset(balance); err != nil {
			return s.engine.Snapshot(), err
		}
		return s.engine.Snapshot(), nil
	})
}

// Stats returns a copy of the statistics for rounds settled in this session
func (s *Session) Stats() *statistics.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Clone()
}

// Close stops any pending timers. Later commands fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimers()
}

func (s *Session) do(fn func() (game.Snapshot, error)) (game.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.engine.Snapshot(), ErrClosed
	}
	snap, err := fn()
	if err != nil {
		return snap, err
	}
	return s.schedule(snap), nil
}

// schedule arms the timers the new phase needs. With no dealer delay the
// dealer is played out here and the settled snapshot returned.
func (s *Session) schedule(snap game.Snapshot) game.Snapshot {
	s.stopTimers()

	switch snap.Phase {
	case game.DealerTurn:
		if s.dealerDelay <= 0 {
			return s.playDealer(snap)
		}
		gen := s.timerGen
		s.dealerTimer = s.clock.AfterFunc(s.dealerDelay, func() { s.dealerTick(gen) }, "session", "dealer")
	case game.PlayerTurn:
		if s.idleTimeout > 0 {
			gen := s.timerGen
			s.idleTimer = s.clock.AfterFunc(s.idleTimeout, func() { s.idleTick(gen) }, "session", "idle")
		}
	}
	return snap
}

func (s *Session) stopTimers() {
	s.timerGen++
	if s.dealerTimer != nil {
		s.dealerTimer.Stop()
		s.dealerTimer = nil
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *Session) playDealer(snap game.Snapshot) game.Snapshot {
	for snap.Phase == game.DealerTurn {
		next, _, err := s.engine.DealerStep()
		if err != nil {
			s.logger.Error("Dealer step failed", "round", snap.RoundID, "error", err)
			return next
		}
		snap = next
	}
	return snap
}

func (s *Session) dealerTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.timerGen || s.engine.Phase() != game.DealerTurn {
		return
	}
	snap, settled, err := s.engine.DealerStep()
	if err != nil {
		s.logger.Error("Dealer step failed", "round", snap.RoundID, "error", err)
		return
	}
	if !settled {
		s.dealerTimer = s.clock.AfterFunc(s.dealerDelay, func() { s.dealerTick(gen) }, "session", "dealer")
	} else {
		s.dealerTimer = nil
	}
	s.notify(snap, CauseDealer)
}

func (s *Session) idleTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.timerGen || s.engine.Phase() != game.PlayerTurn {
		return
	}
	snap, err := s.engine.Stand()
	if err != nil {
		s.logger.Error("Idle stand failed", "round", snap.RoundID, "error", err)
		return
	}
	s.logger.Info("Stood idle hand", "round", snap.RoundID, "timeout", s.idleTimeout)
	s.notify(s.schedule(snap), CauseIdle)
}

func (s *Session) notify(snap game.Snapshot, cause Cause) {
	if s.onUpdate != nil {
		s.onUpdate(snap, cause)
	}
}

// track feeds settled rounds into the session statistics
func (s *Session) track(event game.GameEvent) {
	switch e := event.(type) {
	case game.RoundStartedEvent:
		s.bet = e.Bet
		s.natural = true
	case game.HandActivatedEvent:
		s.natural = false
	case game.RoundSettledEvent:
		if s.bet > 0 {
			s.stats.Add(statistics.FromSettlement(e, s.bet, s.natural))
		}
		s.logger.Debug("Round settled", "round", e.RoundID, "net", e.Net(), "balance", e.Balance)
	}
}

// Package server exposes blackjack sessions over WebSocket. Every connection
// plays its own independent single-player table.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/ledger"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/session"
)

// TableConfig holds the rules and pacing for every session the server opens
type TableConfig struct {
	Decks              int
	ReshuffleThreshold int
	StartingBalance    int
	DefaultBet         int
	Seed               int64 // Zero seeds each session from the clock
	DealerDelay        time.Duration
	IdleTimeout        time.Duration
}

// TableConfigFromConfig builds the table settings from loaded configuration
func TableConfigFromConfig(cfg *config.Config) TableConfig {
	return TableConfig{
		Decks:              cfg.Table.Decks,
		ReshuffleThreshold: cfg.Table.ReshuffleThreshold,
		StartingBalance:    cfg.Table.StartingBalance,
		DefaultBet:         cfg.Table.DefaultBet,
		Seed:               cfg.Table.Seed,
		DealerDelay:        cfg.Server.DealerDelay(),
		IdleTimeout:        cfg.Server.IdleTimeoutDuration(),
	}
}

// Option configures a Server
type Option func(*Server)

// WithClock sets the clock sessions use for pacing and idle timeouts
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithLedger records every settled round into store
func WithLedger(store ledger.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithShoes supplies the shoe for each new session instead of a shuffled
// one. Used to script deals.
func WithShoes(next func() *deck.Shoe) Option {
	return func(s *Server) { s.shoes = next }
}

// Server represents the WebSocket server
type Server struct {
	table       TableConfig
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	logger      *log.Logger
	clock       quartz.Clock
	store       ledger.Store
	shoes       func() *deck.Shoe
	mu          sync.RWMutex
	sessions    atomic.Int64
	settled     atomic.Int64
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(table TableConfig, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		table: table,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		logger:      logger.WithPrefix("server"),
		clock:       quartz.NewReal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler serving /ws, /health and /stats
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Serve accepts connections on l until ctx is cancelled, then closes every
// connection and shuts down.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", l.Addr().String())
		errCh <- s.httpServer.Serve(l)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	s.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

// Stop closes all connections
func (s *Server) Stop() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close() // Ignore close errors during shutdown
	}
}

// ConnectionCount returns the number of open connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "session", conn.id, "total", total)
}

func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "session", conn.id, "total", total)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	id := uuid.NewString()
	n := s.sessions.Add(1)
	client := NewConnection(id, ws, s.table, s.logger)
	client.Attach(s.newSession(client, n))

	s.register(client)

	snap := client.session.Snapshot()
	welcome, err := NewMessage(MessageTypeWelcome, WelcomeData{
		SessionID:  id,
		Decks:      s.table.Decks,
		DefaultBet: s.table.DefaultBet,
		Snapshot:   SnapshotFromGame(snap),
	})
	if err == nil {
		_ = client.SendMessage(welcome)
	}
	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
	}()
}

// newSession opens the n-th session for a connection
func (s *Server) newSession(conn *Connection, n int64) *session.Session {
	seed := randutil.Resolve(s.table.Seed)
	if s.table.Seed != 0 {
		seed += n - 1
	}

	opts := session.Options{
		Balance:            s.table.StartingBalance,
		Decks:              s.table.Decks,
		ReshuffleThreshold: s.table.ReshuffleThreshold,
		RNG:                randutil.New(seed),
		DealerDelay:        s.table.DealerDelay,
		IdleTimeout:        s.table.IdleTimeout,
		Clock:              s.clock,
		Logger:             s.logger.With("session", conn.id),
		OnUpdate:           conn.OnUpdate,
	}
	if s.shoes != nil {
		opts.Shoe = s.shoes()
	}

	sess := session.New(opts)
	sess.Subscribe(conn)
	sess.Subscribe(game.SubscriberFunc(func(event game.GameEvent) {
		if _, ok := event.(game.RoundSettledEvent); ok {
			s.settled.Add(1)
		}
	}))
	if s.store != nil {
		// Connections do not own the ledger balance
		sess.Subscribe(ledger.NewRecorder(s.store, s.clock, s.logger, ledger.Anonymous()))
	}
	s.logger.Debug("Session opened", "session", conn.id, "seed", seed)
	return sess
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}

// StatsData is served on /stats
type StatsData struct {
	Connections   int            `json:"connections"`
	Sessions      int64          `json:"sessions"`
	RoundsSettled int64          `json:"roundsSettled"`
	Ledger        *ledger.Totals `json:"ledger,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := StatsData{
		Connections:   s.ConnectionCount(),
		Sessions:      s.sessions.Load(),
		RoundsSettled: s.settled.Load(),
	}
	if s.store != nil {
		totals, err := s.store.Totals(r.Context())
		if err != nil {
			s.logger.Error("Failed to read ledger totals", "error", err)
		} else {
			stats.Ledger = &totals
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Error("Failed to write stats", "error", err)
	}
}

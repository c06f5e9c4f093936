package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
)

// Connection is one player's WebSocket and the session it plays
type Connection struct {
	id        string
	conn      *websocket.Conn
	send      chan *Message
	session   *session.Session
	table     TableConfig
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex // guards closed against SendMessage
	closed    bool
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper. Call Attach before Start.
func NewConnection(id string, conn *websocket.Conn, table TableConfig, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan *Message, 256),
		table:  table,
		logger: logger.WithPrefix("conn").With("session", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Attach binds the session this connection drives
func (c *Connection) Attach(s *session.Session) {
	c.session = s
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection and its session
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.session != nil {
			c.session.Close()
		}
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client. It never blocks; a client
// that cannot keep up is disconnected.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}

	select {
	case c.send <- msg:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		c.logger.Warn("Connection send buffer full, closing connection")
		go func() { _ = c.Close() }()
		return ErrConnectionClosed
	}
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.sendError("", CodeInvalidMessage, "Malformed message: "+err.Error())
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "request", msg.RequestID)

	switch msg.Type {
	case MessageTypeStart:
		var data StartData
		if !c.decode(msg, &data) {
			return
		}
		bet := data.Bet
		if bet == 0 {
			bet = c.table.DefaultBet
		}
		c.reply(msg, func() (game.Snapshot, error) { return c.session.Start(bet) })

	case MessageTypeHit:
		c.reply(msg, func() (game.Snapshot, error) { return c.session.Act(game.Hit) })

	case MessageTypeStand:
		c.reply(msg, func() (game.Snapshot, error) { return c.session.Act(game.Stand) })

	case MessageTypeDouble:
		c.reply(msg, func() (game.Snapshot, error) { return c.session.Act(game.Double) })

	case MessageTypeSplit:
		c.reply(msg, func() (game.Snapshot, error) { return c.session.Act(game.Split) })

	case MessageTypeReset:
		var data ResetData
		if !c.decode(msg, &data) {
			return
		}
		balance := data.Balance
		if balance == 0 {
			balance = c.table.StartingBalance
		}
		c.reply(msg, func() (game.Snapshot, error) { return c.session.Reset(balance) })

	case MessageTypeState:
		c.sendSnapshot(msg.RequestID, c.session.Snapshot(), "")

	default:
		c.sendError(msg.RequestID, CodeUnknownMessageType, "Unknown message type: "+msg.Type.String())
	}
}

// decode unmarshals optional message data, replying with an error when it
// is malformed.
func (c *Connection) decode(msg *Message, v any) bool {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return true
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		c.sendError(msg.RequestID, CodeInvalidMessage, "Failed to parse "+msg.Type.String()+" data")
		return false
	}
	return true
}

// reply runs a command and answers with the resulting snapshot or the
// rejection. Events the command produced are already queued by then.
func (c *Connection) reply(msg *Message, command func() (game.Snapshot, error)) {
	snap, err := command()
	if err != nil {
		c.logger.Debug("Command rejected", "type", msg.Type, "error", err)
		c.sendError(msg.RequestID, ErrorCode(err), err.Error())
		return
	}
	c.sendSnapshot(msg.RequestID, snap, "")
}

// OnEvent forwards engine events to the client
func (c *Connection) OnEvent(event game.GameEvent) {
	mt, data := EventFromGame(event)
	c.sendData("", mt, data)
}

// OnUpdate forwards snapshots produced by dealer pacing and idle timeouts
func (c *Connection) OnUpdate(snap game.Snapshot, cause session.Cause) {
	c.sendSnapshot("", snap, string(cause))
}

func (c *Connection) sendSnapshot(requestID string, snap game.Snapshot, cause string) {
	data := SnapshotFromGame(snap)
	data.Cause = cause
	c.sendData(requestID, MessageTypeSnapshot, data)
}

func (c *Connection) sendData(requestID string, mt MessageType, data any) {
	msg, err := NewMessage(mt, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", mt, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg) // Ignore send errors, the read pump notices closed connections
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	c.sendData(requestID, MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
}

// Package server manages individual chat connections: the name handshake,
// the concurrent inbound and outbound loops, and teardown.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// State is the lifecycle phase of a connection.
type State int32

// Lifecycle phases, entered in this order exactly once each.
const (
	StateHandshaking State = iota
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Connection runs one chat peer end to end. It is self-terminating: it ends
// when the peer leaves or its transport fails, never on external request.
type Connection struct {
	id        string
	addr      string
	name      string
	transport Transport
	hub       *hub.Hub
	outbox    *hub.Outbox
	limiter   *rateLimiter
	maxSize   int64
	logger    *slog.Logger
	state     atomic.Int32
	closeOnce sync.Once
}

// NewConnection creates a connection actor for an established transport.
func NewConnection(transport Transport, h *hub.Hub, addr string, cfg Config, logger *slog.Logger) *Connection {
	cfg = cfg.Sanitize()
	id := uuid.NewString()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Connection{
		id:        id,
		addr:      addr,
		transport: transport,
		hub:       h,
		outbox:    hub.NewOutbox(),
		limiter:   newRateLimiter(cfg.RateLimit),
		maxSize:   cfg.MaxMessageSize,
		logger:    logger.With("conn", id, "remote", addr),
	}
}

// ID returns the opaque connection id used as the presence key.
func (c *Connection) ID() string {
	return c.id
}

// Name returns the display name resolved by the handshake.
func (c *Connection) Name() string {
	return c.name
}

// State returns the current lifecycle phase.
func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("connection state changed", "state", s.String())
}

// Run drives the connection through handshake, active service and teardown.
// It returns once the connection is closed and its departure announced.
func (c *Connection) Run(ctx context.Context) {
	defer c.closeTransport()

	c.name = c.handshake()
	c.logger = c.logger.With("user", c.name)
	c.activate()

	err := c.serve(ctx)
	c.setState(StateClosing)
	c.logEnd(err)

	c.teardown()
}

// handshake waits for the first frame and resolves a display name from it.
// It always yields a name.
func (c *Connection) handshake() string {
	c.setState(StateHandshaking)
	c.transport.SetReadLimit(c.maxSize)
	c.extendReadDeadline()
	c.transport.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	messageType, data, err := c.transport.ReadMessage()
	if err != nil {
		c.logger.Debug("peer sent no handshake", "error", err)
		return synthesizeName()
	}
	if messageType != websocket.TextMessage {
		return synthesizeName()
	}
	if name := resolveName(data); name != "" {
		return name
	}
	return synthesizeName()
}

// resolveName extracts a display name from a handshake frame: the name of a
// Connect message, or for legacy peers the text before the first colon.
// JSON that is neither a Connect nor a legacy {"text": ...} object carries
// no name. It returns "" when the frame carries no usable name.
func resolveName(data []byte) string {
	frame := protocol.DecodeClient(data)

	var name string
	if frame.Typed {
		connect, ok := frame.Message.(protocol.Connect)
		if !ok {
			return ""
		}
		name = connect.Name
	} else {
		text, ok := protocol.LegacyText(frame.Raw)
		if !ok {
			return ""
		}
		name, _, _ = strings.Cut(text, ":")
	}

	if strings.TrimSpace(name) == "" {
		return ""
	}
	return name
}

// synthesizeName returns "User_" followed by the first group of a fresh uuid.
func synthesizeName() string {
	suffix, _, _ := strings.Cut(uuid.NewString(), "-")
	return "User_" + suffix
}

// activate registers the connection, replays the backlog to it, and
// announces the new presence to everyone.
func (c *Connection) activate() {
	c.hub.Presence.Register(c.id, c.name)
	c.hub.Clients.Add(c.outbox)
	c.setState(StateActive)

	c.logger.Info("user joined", "users", c.hub.Presence.Len())

	if err := c.replayBacklog(); err != nil {
		c.logWriteError("backlog replay failed", err)
	}

	c.announce(c.hub.UserList())
	c.announce(protocol.UserJoined{Name: c.name})
}

// replayBacklog writes the stored history straight to the transport, ahead
// of anything queued on the outbox in the meantime.
func (c *Connection) replayBacklog() error {
	for _, msg := range c.hub.Messages.List() {
		if err := c.writeText(msg.Text); err != nil {
			return err
		}
	}
	return nil
}

// serve runs the inbound and outbound loops until the first of them ends,
// then stops the other by cancelling its context and closing the transport.
func (c *Connection) serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(c.readLoop)
	g.Go(func() error {
		return c.writeLoop(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		c.closeTransport()
		return nil
	})

	return g.Wait()
}

func (c *Connection) readLoop() error {
	for {
		messageType, data, err := c.transport.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if !c.limiter.allow() {
			c.logger.Warn("rate limit exceeded; discarding message",
				"burst", c.limiter.cfg.Burst, "interval", c.limiter.cfg.RefillInterval)
			continue
		}

		if leave := c.handleFrame(data); leave {
			return ErrClientLeft
		}
	}
}

// handleFrame applies one inbound frame and reports whether the peer asked
// to leave.
func (c *Connection) handleFrame(data []byte) bool {
	frame := protocol.DecodeClient(data)
	if !frame.Typed {
		c.hub.PublishRaw(protocol.NewChatMessage(frame.Raw))
		return false
	}

	switch msg := frame.Message.(type) {
	case protocol.Chat:
		if _, err := c.hub.PublishChat(protocol.FormatChat(c.name, msg.Text)); err != nil {
			c.logger.Error("failed to publish chat", "error", err)
		}
	case protocol.Disconnect:
		return true
	case protocol.Connect:
		c.logger.Debug("ignoring repeated connect", "name", msg.Name)
	}
	return false
}

func (c *Connection) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.outbox.Done():
			return ErrOutboxClosed
		case <-c.outbox.Ready():
			for _, msg := range c.outbox.Drain() {
				if err := c.writeText(msg.Text); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return err
			}
		}
	}
}

// teardown closes the outbox so the next broadcast prunes it, removes the
// user from presence, and announces the departure.
func (c *Connection) teardown() {
	c.outbox.Close()
	c.hub.Presence.Unregister(c.id)
	c.setState(StateClosed)

	c.announce(protocol.UserLeft{Name: c.name})
	c.logger.Info("user left", "users", c.hub.Presence.Len())
}

func (c *Connection) announce(m protocol.ServerMessage) {
	if _, err := c.hub.Announce(m); err != nil {
		c.logger.Error("failed to announce", "error", err)
	}
}

func (c *Connection) writeText(text string) error {
	if err := c.transport.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.transport.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *Connection) writePing() error {
	if err := c.transport.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.transport.WriteMessage(websocket.PingMessage, nil)
}

func (c *Connection) extendReadDeadline() {
	if err := c.transport.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Debug("failed to set read deadline", "error", err)
	}
}

func (c *Connection) closeTransport() {
	c.closeOnce.Do(func() {
		if err := c.transport.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("error closing connection", "error", err)
		}
	})
}

// logEnd records why the connection ended, at a level matching how
// surprising the cause is.
func (c *Connection) logEnd(err error) {
	switch {
	case errors.Is(err, ErrClientLeft):
		c.logger.Info("client disconnected")
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("message exceeded maximum size", "limit", c.maxSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure):
		c.logger.Info("client closed connection", "reason", err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), isExpectedCloseError(err),
		errors.Is(err, context.Canceled), errors.Is(err, ErrOutboxClosed):
		c.logger.Info("connection closed", "reason", err)
	default:
		c.logger.Warn("connection ended unexpectedly", "error", err)
	}
}

func (c *Connection) logWriteError(msg string, err error) {
	if isExpectedCloseError(err) {
		c.logger.Debug(msg, "error", err)
		return
	}
	c.logger.Warn(msg, "error", err)
}

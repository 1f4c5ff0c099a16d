// Package client implements the terminal chat client: it joins the room
// channel, sends typed input lines, and renders what the hub broadcasts.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/chathub/internal/protocol"
)

const (
	roomPath  = "/room/1"
	writeWait = 10 * time.Second
)

// ErrConnectionLost reports that the hub went away while the client was
// still chatting.
var ErrConnectionLost = errors.New("connection to chat hub lost")

// URL returns the room channel address for a hub at address:port.
func URL(address string, port int) string {
	return "ws://" + net.JoinHostPort(address, strconv.Itoa(port)) + roomPath
}

// Client is one joined chat session.
type Client struct {
	conn    *websocket.Conn
	name    string
	out     io.Writer
	logger  *slog.Logger
	leaving atomic.Bool
}

// Dial connects to the room channel at url and announces name. Rendered
// frames are written to out. A nil logger discards all output.
func Dial(ctx context.Context, url, name string, out io.Writer, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		name:   name,
		out:    out,
		logger: logger.With("user", name),
	}
	if err := c.send(protocol.Connect{Name: name}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send connect: %w", err)
	}
	return c, nil
}

// Name returns the name the client announced.
func (c *Client) Name() string {
	return c.name
}

// Run chats until input ends, the hub closes the connection, or ctx is
// cancelled. Every non-blank line of in is sent as a chat message; end of
// input sends Disconnect. Leaving or cancelling returns nil.
//
// Reading in is not interruptible, so the goroutine scanning it may outlive
// Run until in yields a line or EOF; it then exits without blocking.
func (c *Client) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	stopped := make(chan struct{})
	defer close(stopped)
	go scanLines(in, lines, stopped)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return c.receiveLoop(ctx)
	})
	g.Go(func() error {
		return c.sendLoop(ctx, lines)
	})
	g.Go(func() error {
		<-ctx.Done()
		return c.conn.Close()
	})

	err := g.Wait()
	if isClosedError(err) {
		return nil
	}
	return err
}

// scanLines sends each line of in until input ends or stopped is closed.
func scanLines(in io.Reader, lines chan<- string, stopped <-chan struct{}) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-stopped:
			return
		}
	}
}

// sendLoop forwards input lines until input ends, then asks to leave. The
// receive loop ends once the hub closes the connection in response.
func (c *Client) sendLoop(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.leaving.Store(true)
				c.logger.Debug("input ended; leaving")
				return c.send(protocol.Disconnect{})
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := c.send(protocol.Chat{Text: line}); err != nil {
				return err
			}
		}
	}
}

func (c *Client) receiveLoop(ctx context.Context) error {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || c.leaving.Load() {
				return nil
			}
			c.logger.Debug("read failed", "error", err)
			_, _ = fmt.Fprintln(c.out, "Server closed connection")
			return fmt.Errorf("%w: %w", ErrConnectionLost, err)
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if _, err := fmt.Fprintln(c.out, Render(protocol.DecodeServer(data))); err != nil {
			return fmt.Errorf("render: %w", err)
		}
	}
}

func (c *Client) send(msg protocol.ClientMessage) error {
	data, err := protocol.EncodeClient(msg)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func isClosedError(err error) bool {
	return err == nil || errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent)
}

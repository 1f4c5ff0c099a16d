package server

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/protocol"
)

const readTimeout = 2 * time.Second

// newTestServer starts an httptest server over a fresh hub.
func newTestServer(t *testing.T, cfg *Config) (*httptest.Server, *hub.Hub) {
	t.Helper()
	if cfg == nil {
		cfg = NewConfig()
	}
	h := hub.New()
	srv := httptest.NewServer(New(*cfg, h, nil).Routes())
	t.Cleanup(srv.Close)
	return srv, h
}

func roomURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + RoomPath
}

// dial opens the room channel without sending anything.
func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(roomURL(srv), nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// join dials the room, sends Connect{name}, and waits for its own
// UserJoined notice so that the connection is fully active.
func join(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	conn := dial(t, srv)
	sendClient(t, conn, protocol.Connect{Name: name})
	waitFor(t, conn, func(f protocol.Frame[protocol.ServerMessage]) bool {
		return f.Message == protocol.ServerMessage(protocol.UserJoined{Name: name})
	})
	return conn
}

func sendClient(t *testing.T, conn *websocket.Conn, msg protocol.ClientMessage) {
	t.Helper()
	data, err := protocol.EncodeClient(msg)
	if err != nil {
		t.Fatalf("Failed to encode %#v: %v", msg, err)
	}
	sendRaw(t, conn, string(data))
}

func sendRaw(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("Failed to send message: %v", err)
	}
}

// readFrame reads and decodes the next server frame.
func readFrame(conn *websocket.Conn, timeout time.Duration) (protocol.Frame[protocol.ServerMessage], error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.Frame[protocol.ServerMessage]{}, err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return protocol.Frame[protocol.ServerMessage]{}, err
	}
	return protocol.DecodeServer(data), nil
}

// waitFor reads frames until match accepts one, failing the test on timeout.
func waitFor(t *testing.T, conn *websocket.Conn, match func(protocol.Frame[protocol.ServerMessage]) bool) protocol.Frame[protocol.ServerMessage] {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatal("Timed out waiting for expected message")
		}
		frame, err := readFrame(conn, remaining)
		if err != nil {
			t.Fatalf("Failed while waiting for expected message: %v", err)
		}
		if match(frame) {
			return frame
		}
	}
}

func isMessage(want protocol.ServerMessage) func(protocol.Frame[protocol.ServerMessage]) bool {
	return func(f protocol.Frame[protocol.ServerMessage]) bool {
		return f.Typed && f.Message == want
	}
}

func isRaw(want string) func(protocol.Frame[protocol.ServerMessage]) bool {
	return func(f protocol.Frame[protocol.ServerMessage]) bool {
		return !f.Typed && f.Raw == want
	}
}

// eventually polls cond until it holds or the timeout expires.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

// assertStatusCode checks if the HTTP response has the expected status code.
func assertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

func postMessage(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(srv.URL+RoomPath, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getMessages(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(srv.URL + MessagesPath)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	assertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return string(body)
}

type fakeFrame struct {
	messageType int
	data        []byte
}

// fakeTransport feeds scripted frames to a Connection. Once the script is
// exhausted ReadMessage reports endErr, io.EOF unless set otherwise.
type fakeTransport struct {
	frames    chan fakeFrame
	endErr    error
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written []string
}

func newFakeTransport(frames ...string) *fakeTransport {
	f := &fakeTransport{
		frames: make(chan fakeFrame, len(frames)),
		endErr: io.EOF,
		closed: make(chan struct{}),
	}
	for _, frame := range frames {
		f.frames <- fakeFrame{messageType: websocket.TextMessage, data: []byte(frame)}
	}
	close(f.frames)
	return f
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case <-f.closed:
		return 0, nil, net.ErrClosed
	default:
	}
	select {
	case frame, ok := <-f.frames:
		if !ok {
			return 0, nil, f.endErr
		}
		return frame.messageType, frame.data, nil
	case <-f.closed:
		return 0, nil, net.ErrClosed
	}
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	if messageType == websocket.TextMessage {
		f.mu.Lock()
		f.written = append(f.written, string(data))
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeTransport) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeTransport) SetReadLimit(int64)                {}
func (f *fakeTransport) SetPongHandler(func(string) error) {}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

func encodeClient(t *testing.T, msg protocol.ClientMessage) string {
	t.Helper()
	data, err := protocol.EncodeClient(msg)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func drainServerMessages(t *testing.T, o *hub.Outbox) []protocol.Frame[protocol.ServerMessage] {
	t.Helper()
	var frames []protocol.Frame[protocol.ServerMessage]
	for _, msg := range o.Drain() {
		frames = append(frames, protocol.DecodeServer([]byte(msg.Text)))
	}
	return frames
}

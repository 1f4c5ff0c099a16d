package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/protocol"
)

// TestHealthHandler verifies the health endpoint through the router.
func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "GET request to health endpoint",
			method:         http.MethodGet,
			expectedStatus: http.StatusOK,
			expectedBody:   "Chat hub is running!",
		},
		{
			name:           "POST request to health endpoint",
			method:         http.MethodPost,
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	routes := New(*NewConfig(), hub.New(), nil).Routes()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", http.NoBody)
			rr := httptest.NewRecorder()

			routes.ServeHTTP(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}
			if tt.expectedBody != "" && rr.Body.String() != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %v want %v",
					rr.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestTestPageHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	TestPageHandler(rr, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	if ct := rr.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("Expected text/html, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), RoomPath) {
		t.Error("Expected test page to reference the room path")
	}
}

func TestMessagesEmpty(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	if body := getMessages(t, srv); body != "" {
		t.Errorf("Expected empty history, got %q", body)
	}
}

// Scenario D: a posted message shows up in the plain text history.
func TestPostThenGetMessages(t *testing.T) {
	srv, h := newTestServer(t, nil)
	h.Messages.Append(protocol.NewChatMessage("Alice: earlier"))

	resp := postMessage(t, srv, `{"text":"hello"}`)
	assertStatusCode(t, resp, http.StatusCreated)

	body := getMessages(t, srv)
	if body != "Alice: earlier\nhello\n" {
		t.Errorf("Unexpected history %q", body)
	}
}

func TestPostRejectsInvalidBodies(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "not json", body: "hello", expectedStatus: http.StatusBadRequest},
		{name: "missing text", body: `{"message":"hello"}`, expectedStatus: http.StatusBadRequest},
		{name: "wrong type", body: `{"text":42}`, expectedStatus: http.StatusBadRequest},
		{name: "empty body", body: "", expectedStatus: http.StatusBadRequest},
		{name: "empty text accepted", body: `{"text":""}`, expectedStatus: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil)
			resp := postMessage(t, srv, tt.body)
			assertStatusCode(t, resp, tt.expectedStatus)
		})
	}
}

func TestPostTooLarge(t *testing.T) {
	cfg := NewConfig()
	cfg.MaxMessageSize = 32
	srv, h := newTestServer(t, cfg)

	resp := postMessage(t, srv, `{"text":"`+strings.Repeat("a", 100)+`"}`)
	assertStatusCode(t, resp, http.StatusRequestEntityTooLarge)

	if n := h.Messages.Len(); n != 0 {
		t.Errorf("Expected nothing stored, got %d messages", n)
	}
}

func TestPostBroadcastsToRoom(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	bob := join(t, srv, "Bob")

	resp := postMessage(t, srv, `{"text":"from http"}`)
	assertStatusCode(t, resp, http.StatusCreated)

	waitFor(t, bob, isMessage(protocol.ServerChat{Text: "from http"}))
}

func TestRoomMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+RoomPath, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	assertStatusCode(t, resp, http.StatusMethodNotAllowed)
}

func TestRoomRequiresUpgrade(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := srv.Client().Get(srv.URL + RoomPath)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	assertStatusCode(t, resp, http.StatusBadRequest)
}

func TestOriginPolicyOnUpgrade(t *testing.T) {
	cfg := NewConfig()
	cfg.AllowedOrigins = []string{"http://example.com"}
	srv, _ := newTestServer(t, cfg)

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	t.Run("Disallowed origin", func(t *testing.T) {
		header := http.Header{}
		header.Set("Origin", "http://evil.com")
		conn, resp, err := dialer.Dial(roomURL(srv), header)
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected connection to fail with disallowed origin")
		}
		if resp == nil {
			t.Fatal("Expected an HTTP response")
		}
		defer func() { _ = resp.Body.Close() }()
		assertStatusCode(t, resp, http.StatusForbidden)
	})

	t.Run("Allowed origin case-insensitive", func(t *testing.T) {
		header := http.Header{}
		header.Set("Origin", "HTTP://Example.COM")
		conn, resp, err := dialer.Dial(roomURL(srv), header)
		if resp != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			t.Fatalf("Expected origin to be allowed: %v", err)
		}
		_ = conn.Close()
	})

	t.Run("Missing origin", func(t *testing.T) {
		conn, resp, err := dialer.Dial(roomURL(srv), nil)
		if resp != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			t.Fatalf("Expected non-browser peer to be allowed: %v", err)
		}
		_ = conn.Close()
	})
}

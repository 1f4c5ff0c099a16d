// Package server exposes HTTP handlers: the room channel upgrade, the polling
// fallback for history and posting, health checks, and the built-in test page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Tyrowin/chathub/internal/protocol"
)

// postBody is the JSON payload accepted by POST /room/1.
type postBody struct {
	Text *string `json:"text"`
}

// handleRoomSocket upgrades the request to the room channel and runs the
// connection until it ends.
func (s *Server) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	connection := NewConnection(conn, s.hub, r.RemoteAddr, s.cfg, logger)
	connection.Run(context.WithoutCancel(r.Context()))
}

// handleMessages returns the whole history as plain text, one line per
// message.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	for _, msg := range s.hub.Messages.List() {
		b.WriteString(msg.Text)
		b.WriteByte('\n')
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, b.String()); err != nil {
		s.requestLogger(r).Warn("error writing messages response", "error", err)
	}
}

// handleRoomPost stores the posted text and broadcasts it to the room.
func (s *Server) handleRoomPost(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxMessageSize)

	var body postBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Message too large.", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid message. Expected JSON body {\"text\": \"...\"}.", http.StatusBadRequest)
		return
	}
	if body.Text == nil {
		http.Error(w, "Invalid message. Missing \"text\" field.", http.StatusBadRequest)
		return
	}

	delivered, err := s.hub.PublishChat(protocol.NewChatMessage(*body.Text))
	if err != nil {
		logger.Error("failed to publish posted message", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logger.Debug("posted message", "remote", r.RemoteAddr, "recipients", delivered)
	w.WriteHeader(http.StatusCreated)
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Chat hub is running!")
}

// TestPageHandler serves an HTML page that joins the room channel from a
// browser, for manual testing.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Chat Hub Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; }
        .chat { color: green; }
        .presence { color: #a67c00; }
        .users { color: blue; }
    </style>
</head>
<body>
    <h1>Chat Hub Test</h1>
    <div>
        <input type="text" id="name" placeholder="Your name">
        <button id="connect" onclick="connect()">Connect</button>
    </div>
    <div id="users" class="users"></div>
    <div id="messages"></div>
    <div>
        <input type="text" id="line" placeholder="Type a message..." disabled>
        <button id="send" onclick="send()" disabled>Send</button>
    </div>
    <script>
        let ws = null;
        const messages = document.getElementById('messages');

        function show(text, cls) {
            const el = document.createElement('div');
            el.className = cls;
            el.textContent = text;
            messages.appendChild(el);
            messages.scrollTop = messages.scrollHeight;
        }

        function render(data) {
            let msg;
            try { msg = JSON.parse(data); } catch (e) { show(data, 'chat'); return; }
            switch (msg && msg.type) {
                case 'Chat': show(msg.text, 'chat'); break;
                case 'UserJoined': show('*** ' + msg.name + ' joined the chat ***', 'presence'); break;
                case 'UserLeft': show('*** ' + msg.name + ' left the chat ***', 'presence'); break;
                case 'UserList':
                    document.getElementById('users').textContent =
                        'Users online: ' + msg.count + ' (' + msg.users.map(u => u.name).join(', ') + ')';
                    break;
                default: show(data, 'chat');
            }
        }

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/room/1');
            ws.onopen = function() {
                ws.send(JSON.stringify({type: 'Connect', name: document.getElementById('name').value}));
                document.getElementById('line').disabled = false;
                document.getElementById('send').disabled = false;
            };
            ws.onmessage = function(event) { render(event.data); };
            ws.onclose = function() {
                show('Connection closed', 'presence');
                document.getElementById('line').disabled = true;
                document.getElementById('send').disabled = true;
            };
        }

        function send() {
            const line = document.getElementById('line');
            if (ws && line.value.trim() !== '') {
                ws.send(JSON.stringify({type: 'Chat', text: line.value}));
                line.value = '';
            }
        }

        document.getElementById('line').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { send(); }
        });
    </script>
</body>
</html>`

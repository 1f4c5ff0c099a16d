// Package server defines the transport contract, sentinel errors, and error
// classification helpers shared by the connection and listener code.
package server

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrBind reports that the listener could not bind its address.
	ErrBind = errors.New("bind failed")
	// ErrClientLeft ends the inbound loop after an explicit Disconnect.
	ErrClientLeft = errors.New("client sent disconnect")
	// ErrOutboxClosed ends the outbound loop when the outbox was closed.
	ErrOutboxClosed = errors.New("outbox closed")
)

// Transport is the message-oriented connection a chat peer talks over.
// *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// Package hub holds the shared state of the chat room: the message history,
// the presence registry, and the registry of live outbound queues used for
// broadcast. Each registry carries its own lock; no method holds a lock while
// doing I/O or while acquiring another registry's lock.
package hub

import (
	"sync"

	"github.com/Tyrowin/chathub/internal/protocol"
)

// MaxMessages is the default number of chat lines kept in memory.
const MaxMessages = 1000

// MessageStore is an append-only history bounded by its capacity. Once full,
// every append evicts the oldest entries first.
type MessageStore struct {
	mu       sync.RWMutex
	messages []protocol.ChatMessage
	capacity int
}

// NewMessageStore creates a store holding at most capacity messages. A
// non-positive capacity selects MaxMessages.
func NewMessageStore(capacity int) *MessageStore {
	if capacity <= 0 {
		capacity = MaxMessages
	}
	return &MessageStore{
		messages: make([]protocol.ChatMessage, 0, capacity+1),
		capacity: capacity,
	}
}

// Append adds msg at the end of the history and trims the front back down to
// the capacity.
func (s *MessageStore) Append(msg protocol.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	if over := len(s.messages) - s.capacity; over > 0 {
		n := copy(s.messages, s.messages[over:])
		clear(s.messages[n:])
		s.messages = s.messages[:n]
	}
}

// List returns a copy of the history, oldest first.
func (s *MessageStore) List() []protocol.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]protocol.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len reports the number of stored messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Capacity reports the maximum number of stored messages.
func (s *MessageStore) Capacity() int {
	return s.capacity
}

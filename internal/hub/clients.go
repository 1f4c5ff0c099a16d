package hub

import (
	"sync"

	"github.com/Tyrowin/chathub/internal/protocol"
)

// ClientRegistry is the set of live outboxes, one per connection. There is
// no explicit removal: a connection closes its outbox on teardown and the
// next broadcast prunes it.
type ClientRegistry struct {
	mu       sync.Mutex
	outboxes []*Outbox
}

// NewClientRegistry creates an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{}
}

// Add registers an outbox for broadcast.
func (r *ClientRegistry) Add(o *Outbox) {
	if o == nil {
		return
	}
	r.mu.Lock()
	r.outboxes = append(r.outboxes, o)
	r.mu.Unlock()
}

// Broadcast queues msg on every registered outbox and returns how many
// accepted it. Outboxes that refuse the message are removed after the pass.
// Sends are in-memory and never block, so the lock is held for the whole
// pass and every recipient sees broadcasts in the same order.
func (r *ClientRegistry) Broadcast(msg protocol.ChatMessage) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	failed := r.sendToAll(msg)
	r.removeFailed(failed)
	return len(r.outboxes)
}

// sendToAll returns the indexes of outboxes that refused msg.
func (r *ClientRegistry) sendToAll(msg protocol.ChatMessage) []int {
	var failed []int
	for i, o := range r.outboxes {
		if !o.Send(msg) {
			failed = append(failed, i)
		}
	}
	return failed
}

// removeFailed drops the outboxes at the given ascending indexes.
func (r *ClientRegistry) removeFailed(failed []int) {
	if len(failed) == 0 {
		return
	}

	live := r.outboxes[:0]
	next := 0
	for i, o := range r.outboxes {
		if next < len(failed) && failed[next] == i {
			next++
			continue
		}
		live = append(live, o)
	}
	clear(r.outboxes[len(live):])
	r.outboxes = live
}

// Len reports the number of registered outboxes, including closed ones not
// yet pruned.
func (r *ClientRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outboxes)
}

package hub

import (
	"sync"

	"github.com/Tyrowin/chathub/internal/protocol"
)

// Outbox is the outbound queue of one connection. It is unbounded and
// ordered: Send never blocks, and Drain hands messages back in the order
// they were sent. After Close every Send fails.
type Outbox struct {
	mu     sync.Mutex
	queue  []protocol.ChatMessage
	closed bool
	ready  chan struct{}
	done   chan struct{}
}

// NewOutbox creates an open, empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Send queues msg. It reports false when the outbox is closed.
func (o *Outbox) Send(msg protocol.ChatMessage) bool {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return false
	}
	o.queue = append(o.queue, msg)
	o.mu.Unlock()

	select {
	case o.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled whenever messages may be waiting. A single signal can
// stand for several sends, so the consumer drains everything on each wakeup.
func (o *Outbox) Ready() <-chan struct{} {
	return o.ready
}

// Done is closed when the outbox is closed.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}

// Drain removes and returns every queued message.
func (o *Outbox) Drain() []protocol.ChatMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	queued := o.queue
	o.queue = nil
	return queued
}

// Close rejects further sends and discards anything still queued. It is
// safe to call more than once.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true
	o.queue = nil
	close(o.done)
}

// Closed reports whether Close has been called.
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Len reports the number of queued messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

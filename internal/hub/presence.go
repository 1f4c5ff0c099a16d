package hub

import (
	"sort"
	"sync"
	"time"

	"github.com/Tyrowin/chathub/internal/protocol"
)

// User is the presence record of one connection. ID identifies the
// connection and never leaves the server; only Name is sent to peers.
type User struct {
	ID          string
	Name        string
	ConnectedAt time.Time
}

// Info returns the public projection of the user.
func (u User) Info() protocol.UserInfo {
	return protocol.UserInfo{Name: u.Name}
}

// Presence maps connection ids to users. Names need not be unique.
type Presence struct {
	mu    sync.RWMutex
	users map[string]User
	now   func() time.Time
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{
		users: make(map[string]User),
		now:   time.Now,
	}
}

// Register records a user for the connection id, stamped with the current
// time. Registering an id twice replaces the previous record.
func (p *Presence) Register(id, name string) User {
	user := User{ID: id, Name: name, ConnectedAt: p.now()}

	p.mu.Lock()
	p.users[id] = user
	p.mu.Unlock()

	return user
}

// Unregister removes the user for id. Unknown ids are ignored.
func (p *Presence) Unregister(id string) {
	p.mu.Lock()
	delete(p.users, id)
	p.mu.Unlock()
}

// Lookup returns the user registered for id.
func (p *Presence) Lookup(id string) (User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	user, ok := p.users[id]
	return user, ok
}

// Snapshot returns a copy of all registered users, earliest connection
// first. Callers must not rely on the order.
func (p *Presence) Snapshot() []User {
	p.mu.RLock()
	users := make([]User, 0, len(p.users))
	for _, user := range p.users {
		users = append(users, user)
	}
	p.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].ConnectedAt.Equal(users[j].ConnectedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].ConnectedAt.Before(users[j].ConnectedAt)
	})
	return users
}

// Len reports the number of registered users.
func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}

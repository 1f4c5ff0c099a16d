package hub

import (
	"fmt"

	"github.com/Tyrowin/chathub/internal/protocol"
)

// Hub bundles the three registries shared by every connection and HTTP
// handler. It is created once and passed by pointer; the registries lock
// independently.
type Hub struct {
	Messages *MessageStore
	Presence *Presence
	Clients  *ClientRegistry
}

// New creates a hub whose history holds MaxMessages lines.
func New() *Hub {
	return NewWithCapacity(MaxMessages)
}

// NewWithCapacity creates a hub whose history holds capacity lines.
func NewWithCapacity(capacity int) *Hub {
	return &Hub{
		Messages: NewMessageStore(capacity),
		Presence: NewPresence(),
		Clients:  NewClientRegistry(),
	}
}

// PublishChat stores msg and broadcasts it as a typed Chat message. It
// returns the number of recipients.
func (h *Hub) PublishChat(msg protocol.ChatMessage) (int, error) {
	h.Messages.Append(msg)
	return h.Announce(protocol.ServerChat{Text: msg.Text})
}

// PublishRaw stores msg and broadcasts its text verbatim, for peers that
// speak the untagged legacy format.
func (h *Hub) PublishRaw(msg protocol.ChatMessage) int {
	h.Messages.Append(msg)
	return h.Clients.Broadcast(msg)
}

// Announce encodes m and broadcasts it without touching the history.
func (h *Hub) Announce(m protocol.ServerMessage) (int, error) {
	data, err := protocol.EncodeServer(m)
	if err != nil {
		return 0, fmt.Errorf("encode %T: %w", m, err)
	}
	return h.Clients.Broadcast(protocol.NewChatMessage(string(data))), nil
}

// UserList builds a presence snapshot suitable for the wire.
func (h *Hub) UserList() protocol.UserList {
	users := h.Presence.Snapshot()
	infos := make([]protocol.UserInfo, 0, len(users))
	for _, user := range users {
		infos = append(infos, user.Info())
	}
	return protocol.NewUserList(infos)
}

// Package protocol defines the chat line value and the tagged JSON messages
// exchanged between chat clients and the hub over the room channel.
package protocol

// ChatMessage is one line of chat history. It is a plain value and is
// copied, never shared, when handed to several recipients.
type ChatMessage struct {
	Text string `json:"text"`
}

// NewChatMessage wraps text as a chat line without any sender prefix.
func NewChatMessage(text string) ChatMessage {
	return ChatMessage{Text: text}
}

// FormatChat builds the sender-prefixed line "sender: body".
func FormatChat(sender, body string) ChatMessage {
	return ChatMessage{Text: sender + ": " + body}
}

// Package protocol implements the tagged message codec shared by the hub and
// its clients. Every typed message is a JSON object whose "type" field names
// the variant; payloads that do not match are handed back as legacy text.
package protocol

import (
	"bytes"
	"encoding/json"
)

// Variant tags carried in the "type" field.
const (
	TypeConnect    = "Connect"
	TypeChat       = "Chat"
	TypeDisconnect = "Disconnect"
	TypeUserList   = "UserList"
	TypeUserJoined = "UserJoined"
	TypeUserLeft   = "UserLeft"
)

// ClientMessage is a message sent by a chat client to the hub. The concrete
// types are Connect, Chat and Disconnect.
type ClientMessage interface {
	clientMessage()
}

// ServerMessage is a message sent by the hub to its clients. The concrete
// types are ServerChat, UserList, UserJoined and UserLeft.
type ServerMessage interface {
	serverMessage()
}

// Connect declares the display name of a client. It is sent once, right
// after the transport handshake.
type Connect struct {
	Name string
}

// Chat carries one line typed by a client.
type Chat struct {
	Text string
}

// Disconnect announces that the client is leaving.
type Disconnect struct{}

// ServerChat carries a formatted, sender-prefixed chat line.
type ServerChat struct {
	Text string
}

// UserInfo is the public projection of a connected user.
type UserInfo struct {
	Name string `json:"name"`
}

// UserList is a full presence snapshot.
type UserList struct {
	Count int
	Users []UserInfo
}

// UserJoined announces a new connection.
type UserJoined struct {
	Name string
}

// UserLeft announces a closed connection.
type UserLeft struct {
	Name string
}

func (Connect) clientMessage()    {}
func (Chat) clientMessage()       {}
func (Disconnect) clientMessage() {}

func (ServerChat) serverMessage() {}
func (UserList) serverMessage()   {}
func (UserJoined) serverMessage() {}
func (UserLeft) serverMessage()   {}

// NewUserList builds a snapshot whose count matches the given users.
func NewUserList(users []UserInfo) UserList {
	if users == nil {
		users = []UserInfo{}
	}
	return UserList{Count: len(users), Users: users}
}

type nameBody struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type textBody struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type userListBody struct {
	Type  string     `json:"type"`
	Users []UserInfo `json:"users"`
	Count int        `json:"count"`
}

type tagOnly struct {
	Type string `json:"type"`
}

// MarshalJSON encodes the message as {"type":"Connect","name":...}.
func (m Connect) MarshalJSON() ([]byte, error) {
	return json.Marshal(nameBody{Type: TypeConnect, Name: m.Name})
}

// MarshalJSON encodes the message as {"type":"Chat","text":...}.
func (m Chat) MarshalJSON() ([]byte, error) {
	return json.Marshal(textBody{Type: TypeChat, Text: m.Text})
}

// MarshalJSON encodes the message as {"type":"Disconnect"}.
func (Disconnect) MarshalJSON() ([]byte, error) {
	return json.Marshal(tagOnly{Type: TypeDisconnect})
}

// MarshalJSON encodes the message as {"type":"Chat","text":...}.
func (m ServerChat) MarshalJSON() ([]byte, error) {
	return json.Marshal(textBody{Type: TypeChat, Text: m.Text})
}

// MarshalJSON encodes the snapshot as {"type":"UserList","users":[...],"count":n}.
func (m UserList) MarshalJSON() ([]byte, error) {
	users := m.Users
	if users == nil {
		users = []UserInfo{}
	}
	return json.Marshal(userListBody{Type: TypeUserList, Users: users, Count: m.Count})
}

// MarshalJSON encodes the message as {"type":"UserJoined","name":...}.
func (m UserJoined) MarshalJSON() ([]byte, error) {
	return json.Marshal(nameBody{Type: TypeUserJoined, Name: m.Name})
}

// MarshalJSON encodes the message as {"type":"UserLeft","name":...}.
func (m UserLeft) MarshalJSON() ([]byte, error) {
	return json.Marshal(nameBody{Type: TypeUserLeft, Name: m.Name})
}

// EncodeClient serializes a client message.
func EncodeClient(m ClientMessage) ([]byte, error) {
	return json.Marshal(m)
}

// EncodeServer serializes a server message.
func EncodeServer(m ServerMessage) ([]byte, error) {
	return json.Marshal(m)
}

// Frame is the result of decoding one payload. When Typed is set, Message
// holds the decoded variant; otherwise Raw holds the payload verbatim and the
// caller applies the legacy bare-text behavior.
type Frame[M any] struct {
	Message M
	Raw     string
	Typed   bool
}

func typed[M any](m M, raw string) Frame[M] {
	return Frame[M]{Message: m, Raw: raw, Typed: true}
}

func legacy[M any](raw string) Frame[M] {
	return Frame[M]{Raw: raw}
}

// fields holds the members of a JSON object by their exact key. Lookups are
// case-sensitive, unlike decoding into a struct.
type fields map[string]json.RawMessage

func decodeFields(data []byte) (fields, bool) {
	var f fields
	if err := json.Unmarshal(data, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// str decodes the member key as a JSON string. Missing members, null and
// other JSON types report false.
func (f fields) str(key string) (string, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// count decodes the member key as a non-negative integer.
func (f fields) count(key string) (int, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// users decodes the member key as an array of {"name": string} objects.
func (f fields) users(key string) ([]UserInfo, bool) {
	raw, ok := f[key]
	if !ok || isNull(raw) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	users := make([]UserInfo, 0, len(items))
	for _, item := range items {
		user, ok := decodeFields(item)
		if !ok {
			return nil, false
		}
		name, ok := user.str("name")
		if !ok {
			return nil, false
		}
		users = append(users, UserInfo{Name: name})
	}
	return users, true
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

// decodeTagged splits a payload into its variant tag and members. Only the
// members of the selected variant are decoded, so unrelated members of any
// type are ignored.
func decodeTagged(data []byte) (string, fields, bool) {
	f, ok := decodeFields(data)
	if !ok {
		return "", nil, false
	}
	tag, ok := f.str("type")
	if !ok || tag == "" {
		return "", nil, false
	}
	return tag, f, true
}

// DecodeClient decodes a payload sent by a client. It never fails: anything
// that is not a well-formed client message comes back as legacy text.
func DecodeClient(data []byte) Frame[ClientMessage] {
	raw := string(data)
	tag, f, ok := decodeTagged(data)
	if !ok {
		return legacy[ClientMessage](raw)
	}

	switch tag {
	case TypeConnect:
		if name, ok := f.str("name"); ok {
			return typed[ClientMessage](Connect{Name: name}, raw)
		}
	case TypeChat:
		if text, ok := f.str("text"); ok {
			return typed[ClientMessage](Chat{Text: text}, raw)
		}
	case TypeDisconnect:
		return typed[ClientMessage](Disconnect{}, raw)
	}
	return legacy[ClientMessage](raw)
}

// DecodeServer decodes a payload sent by the hub. Backlog lines and
// messages from legacy hubs come back as legacy text.
func DecodeServer(data []byte) Frame[ServerMessage] {
	raw := string(data)
	tag, f, ok := decodeTagged(data)
	if !ok {
		return legacy[ServerMessage](raw)
	}

	switch tag {
	case TypeChat:
		if text, ok := f.str("text"); ok {
			return typed[ServerMessage](ServerChat{Text: text}, raw)
		}
	case TypeUserList:
		users, usersOK := f.users("users")
		count, countOK := f.count("count")
		if usersOK && countOK {
			return typed[ServerMessage](UserList{Count: count, Users: users}, raw)
		}
	case TypeUserJoined:
		if name, ok := f.str("name"); ok {
			return typed[ServerMessage](UserJoined{Name: name}, raw)
		}
	case TypeUserLeft:
		if name, ok := f.str("name"); ok {
			return typed[ServerMessage](UserLeft{Name: name}, raw)
		}
	}
	return legacy[ServerMessage](raw)
}

// LegacyText extracts the bare chat string of a legacy payload. Old peers
// sent {"text": "..."}; a payload that is not JSON is the bare string
// itself. Any other JSON value carries no legacy text and reports false.
func LegacyText(raw string) (string, bool) {
	if !json.Valid([]byte(raw)) {
		return raw, true
	}
	f, ok := decodeFields([]byte(raw))
	if !ok {
		return "", false
	}
	return f.str("text")
}

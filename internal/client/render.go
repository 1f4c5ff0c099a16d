package client

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Tyrowin/chathub/internal/protocol"
)

var (
	chatStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	userListStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	presenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

const userListRule = "========================"

// Render formats one server frame for the terminal. Frames that are not
// typed messages are shown verbatim.
func Render(frame protocol.Frame[protocol.ServerMessage]) string {
	if !frame.Typed {
		return chatStyle.Render(frame.Raw)
	}

	switch msg := frame.Message.(type) {
	case protocol.ServerChat:
		return chatStyle.Render(msg.Text)
	case protocol.UserList:
		lines := make([]string, 0, len(msg.Users)+2)
		lines = append(lines, fmt.Sprintf("=== Users online: %d ===", msg.Count))
		for _, user := range msg.Users {
			lines = append(lines, "  "+user.Name)
		}
		lines = append(lines, userListRule)
		return userListStyle.Render(strings.Join(lines, "\n"))
	case protocol.UserJoined:
		return presenceStyle.Render(fmt.Sprintf("*** %s joined the chat ***", msg.Name))
	case protocol.UserLeft:
		return presenceStyle.Render(fmt.Sprintf("*** %s left the chat ***", msg.Name))
	default:
		return chatStyle.Render(frame.Raw)
	}
}

var (
	adjectives = []string{"Happy", "Quick", "Silent", "Brave", "Clever", "Swift", "Bright", "Calm"}
	nouns      = []string{"Panda", "Eagle", "Tiger", "Wolf", "Fox", "Bear", "Lion", "Hawk"}
)

// RandomName returns a name like "BraveFox42" for clients started without
// one.
func RandomName() string {
	return fmt.Sprintf("%s%s%d",
		adjectives[rand.Intn(len(adjectives))],
		nouns[rand.Intn(len(nouns))],
		rand.Intn(1000))
}

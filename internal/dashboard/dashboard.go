// Package dashboard draws a periodically refreshed presence view of the chat
// hub on a terminal.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Tyrowin/chathub/internal/hub"
)

const (
	// DefaultInterval is the redraw period.
	DefaultInterval = time.Second

	maxListed  = 10
	maxNameLen = 30

	clearScreen = "\x1b[2J\x1b[H"
)

// PresenceSource supplies the users to show. *hub.Presence satisfies it.
type PresenceSource interface {
	Snapshot() []hub.User
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Dashboard redraws the presence view of src onto out.
type Dashboard struct {
	src      PresenceSource
	out      io.Writer
	interval time.Duration
	now      func() time.Time
}

// New creates a dashboard redrawing every DefaultInterval.
func New(src PresenceSource, out io.Writer) *Dashboard {
	return &Dashboard{
		src:      src,
		out:      out,
		interval: DefaultInterval,
		now:      time.Now,
	}
}

// Run draws the view immediately and then once per interval until ctx is
// cancelled. It returns nil on cancellation and the write error otherwise.
func (d *Dashboard) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if err := d.draw(); err != nil {
			return fmt.Errorf("draw dashboard: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (d *Dashboard) draw() error {
	_, err := io.WriteString(d.out, clearScreen+Render(d.src.Snapshot(), d.now())+"\n")
	return err
}

// Render returns the presence box for users as seen at now. At most ten
// users are listed; the rest are summarized on one line.
func Render(users []hub.User, now time.Time) string {
	lines := []string{
		titleStyle.Render("Chat Server"),
		countStyle.Render(fmt.Sprintf("Connected Users: %d", len(users))),
		"",
	}

	if len(users) == 0 {
		lines = append(lines, mutedStyle.Render("No users connected"))
	}
	for i, user := range users {
		if i == maxListed {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("... and %d more users", len(users)-maxListed)))
			break
		}
		lines = append(lines, fmt.Sprintf("%s (%ds ago)", truncate(user.Name, maxNameLen), elapsedSeconds(user, now)))
	}

	lines = append(lines, "", mutedStyle.Render("Press Ctrl+C to quit"))
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func elapsedSeconds(user hub.User, now time.Time) int64 {
	elapsed := now.Sub(user.ConnectedAt)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}

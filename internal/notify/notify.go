// Package notify delivers sync-engine notifications to the user.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"cyphertext/internal/domain"
	domaintypes "cyphertext/internal/domain/types"
)

// Channel buffers notifications for a consumer goroutine. When the buffer
// is full new notifications are dropped rather than blocking the engine.
type Channel struct {
	C chan domain.Notification
}

// NewChannel returns a Channel with room for size pending notifications.
func NewChannel(size int) *Channel {
	return &Channel{C: make(chan domain.Notification, size)}
}

// Notify queues n if there is room.
func (c *Channel) Notify(n domain.Notification) {
	select {
	case c.C <- n:
	default:
	}
}

// Console prints notifications to a terminal, errors in red.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Notify prints n on a single line.
func (c *Console) Notify(n domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	paint := color.New(color.FgCyan, color.Bold)
	if n.Severity == domaintypes.SeverityError {
		paint = color.New(color.FgRed, color.Bold)
	}
	_, _ = paint.Fprintf(c.out, "[%s]", n.Title)
	_, _ = fmt.Fprintf(c.out, " %s\n", n.Body)
}

// Multi fans a notification out to several notifiers.
type Multi []domain.Notifier

// Notify forwards n to every notifier.
func (m Multi) Notify(n domain.Notification) {
	for _, x := range m {
		x.Notify(n)
	}
}

var (
	_ domain.Notifier = (*Channel)(nil)
	_ domain.Notifier = (*Console)(nil)
	_ domain.Notifier = Multi(nil)
)

// Package observer holds dispatch.Observer implementations used by the CLI:
// status lines on the logger, fan-out on an event bus, and a tracker of the
// latest fleet state.
package observer

import (
	"sync"

	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/infra/logger"
	"github.com/kilianp07/dronedispatch/internal/eventbus"
)

// Console writes the status line of every notification to a logger. With
// Verbose set the carrier roster is logged at debug level as well.
type Console struct {
	Log     logger.Logger
	Verbose bool
}

func (c Console) Notify(n dispatch.Notification) {
	c.Log.Infof("%s", n.Message)
	if !c.Verbose {
		return
	}
	for _, s := range n.Carriers {
		c.Log.Debugw(s.String(), map[string]any{"seq": n.Seq, "kind": n.Kind.String()})
	}
}

// Bus republishes notifications on an event bus so that several consumers
// can follow the engine without slowing it down.
type Bus struct {
	bus *eventbus.Bus[dispatch.Notification]
}

// NewBus wraps bus.
func NewBus(bus *eventbus.Bus[dispatch.Notification]) *Bus { return &Bus{bus: bus} }

func (b *Bus) Notify(n dispatch.Notification) { b.bus.Publish(n) }

// Tracker keeps the most recent notification. Notifications may reach it out
// of order; older ones are ignored.
type Tracker struct {
	mu     sync.Mutex
	latest dispatch.Notification
	seen   int
}

func (t *Tracker) Notify(n dispatch.Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen++
	if n.Seq > t.latest.Seq {
		t.latest = n
	}
}

// Latest returns the notification with the highest sequence number so far.
func (t *Tracker) Latest() dispatch.Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Seen counts the notifications received.
func (t *Tracker) Seen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seen
}

package dispatch

import (
	"fmt"
	"time"

	"github.com/kilianp07/dronedispatch/core/model"
)

// Kind classifies a notification.
type Kind int

const (
	KindSubmitted Kind = iota
	KindAssigned
	KindRequeued
	KindDeparted
	KindProgress
	KindDelivered
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindSubmitted:
		return "submitted"
	case KindAssigned:
		return "assigned"
	case KindRequeued:
		return "requeued"
	case KindDeparted:
		return "departed"
	case KindProgress:
		return "progress"
	case KindDelivered:
		return "delivered"
	case KindInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText parses a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for c := KindSubmitted; c <= KindInterrupted; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown notification kind %q", b)
}

// Notification is emitted after every state change of the engine. Seq grows
// strictly with each change; observers may drop notifications older than the
// last one they applied.
type Notification struct {
	Seq       uint64                  `json:"seq"`
	Time      time.Time               `json:"time"`
	Kind      Kind                    `json:"kind"`
	Message   string                  `json:"message"`
	RequestID string                  `json:"request_id,omitempty"`
	CarrierID string                  `json:"carrier_id,omitempty"`
	Carriers  []model.CarrierSnapshot `json:"carriers"`
	// Requests lists assigned requests followed by pending ones.
	Requests []model.RequestSnapshot `json:"requests"`
}

// Observer receives notifications. Notify is called synchronously from the
// goroutine that changed the state, never while the engine lock is held.
// Implementations must not mutate the snapshots.
type Observer interface {
	Notify(Notification)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Notification)

func (f ObserverFunc) Notify(n Notification) { f(n) }

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) Notify(n Notification) {
	for _, o := range m {
		if o != nil {
			o.Notify(n)
		}
	}
}

// NopObserver discards notifications.
type NopObserver struct{}

func (NopObserver) Notify(Notification) {}

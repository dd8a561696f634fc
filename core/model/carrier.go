package model

import (
	"fmt"
	"sync"
)

// Carrier is a drone able to deliver one request at a time.
type Carrier struct {
	id       string
	capacity float64

	mu        sync.Mutex
	location  Location
	target    Location
	available bool
	current   *Request
}

// NewCarrier returns an available carrier parked at home.
func NewCarrier(id string, capacity float64, home Location) *Carrier {
	return &Carrier{
		id:        id,
		capacity:  capacity,
		location:  home,
		target:    home,
		available: true,
	}
}

// Validate checks the carrier configuration.
func (c *Carrier) Validate() error {
	if c.id == "" {
		return fmt.Errorf("carrier id is required")
	}
	if c.capacity <= 0 {
		return fmt.Errorf("carrier %s: capacity must be positive", c.id)
	}
	if c.location == "" {
		return fmt.Errorf("carrier %s: location is required", c.id)
	}
	return nil
}

// ID returns the carrier identifier.
func (c *Carrier) ID() string { return c.id }

// Capacity returns the heaviest load in kilograms the carrier can lift.
func (c *Carrier) Capacity() float64 { return c.capacity }

// Location returns where the carrier currently is.
func (c *Carrier) Location() Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

// Target returns where the carrier is heading, or its location when idle.
func (c *Carrier) Target() Location {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// Available reports whether the carrier can take a new request.
func (c *Carrier) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// Current returns the request being delivered, or nil.
func (c *Carrier) Current() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CanCarry reports whether the carrier is free and strong enough for weight.
func (c *Carrier) CanCarry(weight float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available && c.capacity >= weight
}

// TryAssign hands r to the carrier if it is available and can lift it. On
// failure the carrier is left untouched.
func (c *Carrier) TryAssign(r *Request) bool {
	if r == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.available || c.capacity < r.Weight {
		return false
	}
	c.available = false
	c.current = r
	c.target = r.Destination
	return true
}

// CompleteDelivery moves the carrier to its target and frees it. Calling it on
// an available carrier does nothing.
func (c *Carrier) CompleteDelivery() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available {
		return
	}
	c.location = c.target
	c.current = nil
	c.available = true
}

// Release undoes TryAssign for r without moving the carrier. It does nothing
// when the carrier is not holding r.
func (c *Carrier) Release(r *Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available || c.current != r {
		return
	}
	c.current = nil
	c.target = c.location
	c.available = true
}

// Snapshot returns a read-only copy of the carrier state.
func (c *Carrier) Snapshot() CarrierSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := CarrierSnapshot{
		ID:        c.id,
		Capacity:  c.capacity,
		Location:  c.location,
		Target:    c.target,
		Available: c.available,
	}
	if c.current != nil {
		s.RequestID = c.current.ID
	}
	return s
}

func (c *Carrier) String() string {
	return c.Snapshot().String()
}

package model

import (
	"fmt"
	"time"
)

// Location names a vertex of the delivery network.
type Location string

// Status describes where a request is in its lifecycle.
type Status int

// Request statuses, in lifecycle order.
const (
	StatusQueued Status = iota
	StatusAssigned
	StatusInTransit
	StatusDelivered
)

// String returns the display text of the status.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "awaiting dispatch"
	case StatusAssigned:
		return "assigned"
	case StatusInTransit:
		return "on its way"
	case StatusDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// Request is a single delivery job. Its mutators are not synchronized; callers
// must hold the lock of the component owning the request.
type Request struct {
	ID          string
	Weight      float64
	Destination Location

	status      Status
	location    Location
	carrierID   string
	attempts    int
	submittedAt time.Time
	deliveredAt time.Time
}

// NewRequest creates a request waiting at the depot.
func NewRequest(id string, weight float64, destination, depot Location) *Request {
	return &Request{
		ID:          id,
		Weight:      weight,
		Destination: destination,
		status:      StatusQueued,
		location:    depot,
		submittedAt: time.Now(),
	}
}

// Validate checks the request can be dispatched at all.
func (r *Request) Validate() error {
	if r.Weight <= 0 {
		return fmt.Errorf("weight must be positive, got %v", r.Weight)
	}
	if r.Destination == "" {
		return fmt.Errorf("destination is required")
	}
	return nil
}

// Status returns the lifecycle stage of the request.
func (r *Request) Status() Status { return r.status }

// CurrentLocation returns where the package physically is.
func (r *Request) CurrentLocation() Location { return r.location }

// CarrierID returns the carrier serving the request, empty while queued.
func (r *Request) CarrierID() string { return r.carrierID }

// SubmittedAt returns the creation time of the request.
func (r *Request) SubmittedAt() time.Time { return r.submittedAt }

// DeliveredAt returns the delivery time, zero until delivered.
func (r *Request) DeliveredAt() time.Time { return r.deliveredAt }

// SetCurrentLocation moves the package to l.
func (r *Request) SetCurrentLocation(l Location) { r.location = l }

// Attempts counts how many times a carrier was searched for the request.
func (r *Request) Attempts() int { return r.attempts }

// RecordAttempt notes one more carrier search.
func (r *Request) RecordAttempt() { r.attempts++ }

// Advance moves the request forward to s. Regressions and repeated statuses
// are ignored and reported as false.
func (r *Request) Advance(s Status) bool {
	if s <= r.status {
		return false
	}
	r.status = s
	return true
}

// AssignTo records the carrier serving the request and marks it assigned.
func (r *Request) AssignTo(carrierID string) bool {
	if !r.Advance(StatusAssigned) {
		return false
	}
	r.carrierID = carrierID
	return true
}

// MarkDelivered finalizes the request at its destination.
func (r *Request) MarkDelivered(carrierID string, at time.Time) bool {
	if !r.Advance(StatusDelivered) {
		return false
	}
	r.location = r.Destination
	r.carrierID = carrierID
	r.deliveredAt = at
	return true
}

// Snapshot returns a read-only copy of the request.
func (r *Request) Snapshot() RequestSnapshot {
	return RequestSnapshot{
		ID:              r.ID,
		Weight:          r.Weight,
		Destination:     r.Destination,
		Status:          r.status,
		CurrentLocation: r.location,
		CarrierID:       r.carrierID,
	}
}

func (r *Request) String() string {
	return fmt.Sprintf("%s (%.1fkg) to %s - %s", r.ID, r.Weight, r.Destination, r.status)
}

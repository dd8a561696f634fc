package model

import "fmt"

// CarrierSnapshot is an immutable view of a carrier handed to observers.
type CarrierSnapshot struct {
	ID        string   `json:"id"`
	Capacity  float64  `json:"capacity"`
	Location  Location `json:"location"`
	Target    Location `json:"target"`
	Available bool     `json:"available"`
	RequestID string   `json:"request_id,omitempty"`
}

// String renders the carrier the way the status board lists it.
func (s CarrierSnapshot) String() string {
	if s.Available {
		return fmt.Sprintf("%s (%.1fkg cap) at %s - Available", s.ID, s.Capacity, s.Location)
	}
	return fmt.Sprintf("%s (%.1fkg cap) at %s - Delivering %s to %s", s.ID, s.Capacity, s.Location, s.RequestID, s.Target)
}

// RequestSnapshot is an immutable view of a request handed to observers.
type RequestSnapshot struct {
	ID              string   `json:"id"`
	Weight          float64  `json:"weight"`
	Destination     Location `json:"destination"`
	Status          Status   `json:"status"`
	CurrentLocation Location `json:"current_location"`
	CarrierID       string   `json:"carrier_id,omitempty"`
}

// MarshalText renders the status by name in JSON payloads.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

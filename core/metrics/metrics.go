package metrics

import (
	"time"

	"github.com/kilianp07/dronedispatch/core/model"
)

// DeliveryRecord describes one completed delivery.
type DeliveryRecord struct {
	DeliveryID  string
	RequestID   string
	CarrierID   string
	Origin      model.Location
	Destination model.Location
	Distance    int
	Weight      float64
	// Attempts is the number of carrier searches the request needed.
	Attempts    int
	SubmittedAt time.Time
	AssignedAt  time.Time
	DeliveredAt time.Time
}

// TransitTime is the time spent between assignment and delivery.
func (r DeliveryRecord) TransitTime() time.Duration {
	return r.DeliveredAt.Sub(r.AssignedAt)
}

// QueueWait is the time the request waited before a carrier took it.
func (r DeliveryRecord) QueueWait() time.Duration {
	return r.AssignedAt.Sub(r.SubmittedAt)
}

// MetricsSink records deliveries for observability purposes.
type MetricsSink interface {
	RecordDelivery(rec DeliveryRecord) error
}

// AssignmentRecord describes a request handed to a carrier.
type AssignmentRecord struct {
	DeliveryID  string
	RequestID   string
	CarrierID   string
	Destination model.Location
	Distance    int
	Attempts    int
	QueueWait   time.Duration
	Time        time.Time
}

// AssignmentRecorder is implemented by sinks able to record assignments.
type AssignmentRecorder interface {
	RecordAssignment(rec AssignmentRecord) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDelivery(DeliveryRecord) error     { return nil }
func (NopSink) RecordAssignment(AssignmentRecord) error { return nil }

package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
)

// PromSink records per-carrier delivery metrics in Prometheus.
type PromSink struct {
	deliveries  *prometheus.CounterVec
	assignments *prometheus.CounterVec
	distance    *prometheus.CounterVec
	transit     *prometheus.HistogramVec
	queueWait   prometheus.Histogram
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The exporter is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_deliveries_total",
			Help: "Deliveries completed per drone and destination",
		}, []string{"carrier_id", "destination"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_assignments_total",
			Help: "Packages assigned per drone",
		}, []string{"carrier_id"}),
		distance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drone_distance_units_total",
			Help: "Distance units flown per drone",
		}, []string{"carrier_id"}),
		transit: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drone_transit_seconds",
			Help:    "Time between assignment and delivery",
			Buckets: prometheus.DefBuckets,
		}, []string{"carrier_id"}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "drone_queue_wait_seconds",
			Help:    "Time a package waited for a drone",
			Buckets: prometheus.DefBuckets,
		}),
	}
	var err error
	if s.deliveries, err = register(reg, s.deliveries); err != nil {
		return nil, err
	}
	if s.assignments, err = register(reg, s.assignments); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, s.distance); err != nil {
		return nil, err
	}
	if s.transit, err = register(reg, s.transit); err != nil {
		return nil, err
	}
	if s.queueWait, err = register(reg, s.queueWait); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDelivery updates the delivery counters and transit histogram.
func (s *PromSink) RecordDelivery(rec coremetrics.DeliveryRecord) error {
	s.deliveries.WithLabelValues(rec.CarrierID, string(rec.Destination)).Inc()
	s.distance.WithLabelValues(rec.CarrierID).Add(float64(rec.Distance))
	s.transit.WithLabelValues(rec.CarrierID).Observe(rec.TransitTime().Seconds())
	return nil
}

// RecordAssignment counts the assignment and observes the queue wait.
func (s *PromSink) RecordAssignment(rec coremetrics.AssignmentRecord) error {
	s.assignments.WithLabelValues(rec.CarrierID).Inc()
	s.queueWait.Observe(rec.QueueWait.Seconds())
	return nil
}

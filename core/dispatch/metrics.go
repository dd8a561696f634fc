package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsSubmitted   prometheus.Counter
	assignmentsTotal    prometheus.Counter
	requeuesTotal       *prometheus.CounterVec
	deliveriesCompleted prometheus.Counter
	deliveriesAborted   prometheus.Counter
	deliveryDistance    prometheus.Histogram
	queueDepth          prometheus.Gauge
	carriersBusy        prometheus.Gauge
)

const (
	requeueNoCarrier = "no_carrier"
	requeueRace      = "assignment_race"
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, prometheus.Counter, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter, prometheus.Histogram, prometheus.Gauge, prometheus.Gauge) {
	sub := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_requests_submitted_total",
		Help: "Number of delivery requests submitted",
	})
	asn := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_assignments_total",
		Help: "Number of requests handed to a carrier",
	})
	req := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_requeues_total",
		Help: "Number of requests pushed back to the queue",
	}, []string{"reason"})
	done := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_deliveries_completed_total",
		Help: "Number of deliveries completed",
	})
	abort := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_deliveries_interrupted_total",
		Help: "Number of deliveries interrupted by shutdown",
	})
	dist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_delivery_distance",
		Help:    "Route distance of completed deliveries in network units",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	})
	depth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_queue_depth",
		Help: "Number of requests waiting for a carrier",
	})
	busy := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_carriers_busy",
		Help: "Number of carriers currently delivering",
	})
	return sub, asn, req, done, abort, dist, depth, busy
}

func init() {
	requestsSubmitted, assignmentsTotal, requeuesTotal, deliveriesCompleted, deliveriesAborted, deliveryDistance, queueDepth, carriersBusy = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsSubmitted, assignmentsTotal, requeuesTotal, deliveriesCompleted, deliveriesAborted, deliveryDistance, queueDepth, carriersBusy)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsSubmitted, assignmentsTotal, requeuesTotal, deliveriesCompleted, deliveriesAborted, deliveryDistance, queueDepth, carriersBusy = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

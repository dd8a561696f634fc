package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	// touch vectors so they are exported
	requeuesTotal.WithLabelValues(requeueNoCarrier).Inc()
	deliveryDistance.Observe(5)
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	expected := []string{
		"dispatch_requests_submitted_total",
		"dispatch_assignments_total",
		"dispatch_requeues_total",
		"dispatch_deliveries_completed_total",
		"dispatch_deliveries_interrupted_total",
		"dispatch_delivery_distance",
		"dispatch_queue_depth",
		"dispatch_carriers_busy",
	}
	for _, n := range expected {
		if !names[n] {
			t.Errorf("metric %s not registered", n)
		}
	}
}

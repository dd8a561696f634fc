package metrics

import "github.com/kilianp07/dronedispatch/core/factory"

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinkRegistry.Types() }

// NewMetricsSink creates a MetricsSink from the provided configuration.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDelivery forwards the record to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordDelivery(rec DeliveryRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordDelivery(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordAssignment forwards assignment records to sinks that support them.
func (m *MultiSink) RecordAssignment(rec AssignmentRecord) error {
	for _, s := range m.Sinks {
		if ar, ok := s.(AssignmentRecorder); ok {
			if err := ar.RecordAssignment(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

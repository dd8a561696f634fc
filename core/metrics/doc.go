// Package metrics defines the sinks that record completed deliveries and
// assignment decisions. Implementations such as the Prometheus and InfluxDB
// sinks live in infra/metrics and register themselves with the factory so
// that NewMetricsSink can build them from configuration. Several configured
// sinks are combined automatically.
package metrics

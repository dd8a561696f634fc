// Package infra holds the adapters that connect the dispatch engine to the
// outside world: the zerolog logger, the Prometheus and InfluxDB delivery
// sinks, the MQTT status publisher and the console observers. Adapters only
// depend on the contracts declared under core.
package infra

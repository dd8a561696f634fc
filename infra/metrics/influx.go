package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/infra/logger"
)

// InfluxSink writes delivery events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDelivery writes a delivery_completed point.
func (s *InfluxSink) RecordDelivery(rec coremetrics.DeliveryRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("delivery_completed").
		AddTag("carrier_id", rec.CarrierID).
		AddTag("request_id", rec.RequestID).
		AddTag("delivery_id", rec.DeliveryID).
		AddTag("origin", string(rec.Origin)).
		AddTag("destination", string(rec.Destination)).
		AddField("distance", rec.Distance).
		AddField("weight_kg", round3(rec.Weight)).
		AddField("attempts", rec.Attempts).
		AddField("transit_ms", round3(float64(rec.TransitTime())/float64(time.Millisecond))).
		AddField("queue_wait_ms", round3(float64(rec.QueueWait())/float64(time.Millisecond))).
		SetTime(rec.DeliveredAt)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment writes a delivery_assigned point.
func (s *InfluxSink) RecordAssignment(rec coremetrics.AssignmentRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("delivery_assigned").
		AddTag("carrier_id", rec.CarrierID).
		AddTag("request_id", rec.RequestID).
		AddTag("delivery_id", rec.DeliveryID).
		AddTag("destination", string(rec.Destination)).
		AddField("distance", rec.Distance).
		AddField("attempts", rec.Attempts).
		AddField("queue_wait_ms", round3(float64(rec.QueueWait)/float64(time.Millisecond))).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}

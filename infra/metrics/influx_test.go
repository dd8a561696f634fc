package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/dronedispatch/core/metrics"
)

func recordingServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, strings.TrimSpace(string(data)))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), bodies...)
	}
}

func TestInfluxSink_RecordDelivery(t *testing.T) {
	srv, bodies := recordingServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.DeliveryRecord{
		DeliveryID:  "d-1",
		RequestID:   "PKG-1",
		CarrierID:   "DR-001",
		Origin:      "Warehouse",
		Destination: "Downtown",
		Distance:    5,
		Weight:      4,
		Attempts:    2,
		SubmittedAt: now.Add(-3 * time.Second),
		AssignedAt:  now.Add(-2 * time.Second),
		DeliveredAt: now,
	}
	if err := sink.RecordDelivery(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("delivery_completed").
		AddTag("carrier_id", "DR-001").
		AddTag("request_id", "PKG-1").
		AddTag("delivery_id", "d-1").
		AddTag("origin", "Warehouse").
		AddTag("destination", "Downtown").
		AddField("distance", 5).
		AddField("weight_kg", 4.0).
		AddField("attempts", 2).
		AddField("transit_ms", 2000.0).
		AddField("queue_wait_ms", 1000.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != expected {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordAssignment(t *testing.T) {
	srv, bodies := recordingServer(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	rec := coremetrics.AssignmentRecord{
		DeliveryID:  "d-2",
		RequestID:   "PKG-2",
		CarrierID:   "DR-002",
		Destination: "Uptown",
		Distance:    3,
		Attempts:    1,
		QueueWait:   1500 * time.Microsecond,
		Time:        now,
	}
	if err := sink.RecordAssignment(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("delivery_assigned").
		AddTag("carrier_id", "DR-002").
		AddTag("request_id", "PKG-2").
		AddTag("delivery_id", "d-2").
		AddTag("destination", "Uptown").
		AddField("distance", 3).
		AddField("attempts", 1).
		AddField("queue_wait_ms", 1.5).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	got := bodies()
	if len(got) != 1 || got[0] != exp {
		t.Errorf("bodies: %#v", got)
	}
}

func TestInfluxSink_WriteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	if err := sink.RecordDelivery(coremetrics.DeliveryRecord{CarrierID: "DR-001", DeliveredAt: time.Now()}); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}

func TestNewInfluxSinkWithFallbackHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"name":"influxdb","status":"pass","checks":[]}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL, "tok", "org", "bucket")
	s, ok := sink.(*InfluxSink)
	if !ok {
		t.Fatalf("expected InfluxSink, got %T", sink)
	}
	s.Close()
}

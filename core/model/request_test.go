package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRequestStartsQueuedAtDepot(t *testing.T) {
	r := NewRequest("PKG-1", 4, "Downtown", "Warehouse")
	if r.Status() != StatusQueued {
		t.Fatalf("expected queued got %v", r.Status())
	}
	if r.CurrentLocation() != "Warehouse" {
		t.Fatalf("expected depot location got %s", r.CurrentLocation())
	}
	if r.Status().String() != "awaiting dispatch" {
		t.Fatalf("unexpected status text %q", r.Status())
	}
}

func TestRequestAdvanceIsMonotonic(t *testing.T) {
	r := NewRequest("PKG-1", 4, "Downtown", "Warehouse")
	if !r.Advance(StatusAssigned) || !r.Advance(StatusInTransit) {
		t.Fatalf("forward transitions rejected")
	}
	if r.Advance(StatusAssigned) {
		t.Fatalf("regression accepted")
	}
	if r.Advance(StatusInTransit) {
		t.Fatalf("repeated status accepted")
	}
	if r.Status() != StatusInTransit {
		t.Fatalf("status changed to %v", r.Status())
	}
}

func TestRequestMarkDelivered(t *testing.T) {
	r := NewRequest("PKG-1", 4, "Downtown", "Warehouse")
	r.Advance(StatusInTransit)
	at := time.Now()
	if !r.MarkDelivered("DR-1", at) {
		t.Fatalf("delivery rejected")
	}
	if r.CurrentLocation() != "Downtown" || r.CarrierID() != "DR-1" || !r.DeliveredAt().Equal(at) {
		t.Fatalf("unexpected state %+v", r.Snapshot())
	}
	if r.MarkDelivered("DR-2", time.Now()) {
		t.Fatalf("second delivery accepted")
	}
	if r.CarrierID() != "DR-1" {
		t.Fatalf("carrier overwritten")
	}
}

func TestRequestValidate(t *testing.T) {
	if err := NewRequest("a", 1, "Uptown", "Warehouse").Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NewRequest("a", 0, "Uptown", "Warehouse").Validate(); err == nil {
		t.Fatalf("expected weight error")
	}
	if err := NewRequest("a", 1, "", "Warehouse").Validate(); err == nil {
		t.Fatalf("expected destination error")
	}
}

func TestRequestSnapshotJSON(t *testing.T) {
	r := NewRequest("PKG-7", 2.5, "Airport", "Warehouse")
	b, err := json.Marshal(r.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":"PKG-7","weight":2.5,"destination":"Airport","status":"awaiting dispatch","current_location":"Warehouse"}`
	if string(b) != want {
		t.Fatalf("got %s", b)
	}
}

func TestRequestAssignTo(t *testing.T) {
	r := NewRequest("PKG-1", 1, "Uptown", "Warehouse")
	if !r.AssignTo("DR-2") {
		t.Fatalf("assignment rejected")
	}
	if r.Status() != StatusAssigned || r.CarrierID() != "DR-2" {
		t.Fatalf("unexpected state %+v", r.Snapshot())
	}
	if r.AssignTo("DR-3") {
		t.Fatalf("reassignment accepted")
	}
}

package config

import (
	"fmt"

	"github.com/kilianp07/dronedispatch/core/model"
	"github.com/kilianp07/dronedispatch/core/routing"
)

// NetworkConfig describes the delivery network.
type NetworkConfig struct {
	// Depot is where new packages wait for a drone.
	Depot     model.Location   `json:"depot"`
	Locations []model.Location `json:"locations"`
	Edges     []routing.Edge   `json:"edges"`
}

// SetDefaults loads the built-in topology when no location is configured.
func (c *NetworkConfig) SetDefaults() {
	if len(c.Locations) == 0 && len(c.Edges) == 0 {
		c.Locations, c.Edges = routing.DefaultTopology()
	}
	if c.Depot == "" {
		c.Depot = "Warehouse"
	}
}

// Validate builds the graph once to surface topology errors early.
func (c NetworkConfig) Validate() error {
	g, err := c.Graph()
	if err != nil {
		return err
	}
	if !g.Has(c.Depot) {
		return fmt.Errorf("depot %q is not a known location", c.Depot)
	}
	return nil
}

// Graph builds the routing graph.
func (c NetworkConfig) Graph() (*routing.Graph, error) {
	return routing.New(c.Locations, c.Edges)
}

// CarrierConfig describes one drone of the fleet.
type CarrierConfig struct {
	ID       string         `json:"id"`
	Capacity float64        `json:"capacity"`
	Location model.Location `json:"location"`
}

// DefaultFleet returns the three drones the service starts with.
func DefaultFleet(depot model.Location) []CarrierConfig {
	return []CarrierConfig{
		{ID: "DR-001", Capacity: 5.0, Location: depot},
		{ID: "DR-002", Capacity: 3.0, Location: depot},
		{ID: "DR-003", Capacity: 7.0, Location: depot},
	}
}

// Carriers builds the roster in configuration order.
func (c Config) Carriers() []*model.Carrier {
	out := make([]*model.Carrier, len(c.Fleet))
	for i, cc := range c.Fleet {
		out[i] = model.NewCarrier(cc.ID, cc.Capacity, cc.Location)
	}
	return out
}

// Package manifest reads batches of delivery orders to feed the dispatch
// engine.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dronedispatch/core/model"
)

// Order describes one package to deliver. ID is optional.
type Order struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Weight      float64        `json:"weight" yaml:"weight"`
	Destination model.Location `json:"destination" yaml:"destination"`
}

// Manifest is an ordered list of orders.
type Manifest struct {
	Orders []Order `json:"orders" yaml:"orders"`
}

// Load reads a manifest from a JSON or YAML file.
func Load(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	m, err := Decode(f, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Decode reads a manifest from r in the given format ("yaml", "yml" or "json").
func Decode(r io.Reader, format string) (Manifest, error) {
	var m Manifest
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&m); err != nil && err != io.EOF {
			return m, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&m); err != nil {
			return m, err
		}
	default:
		return m, fmt.Errorf("unsupported format: %s", format)
	}
	return m, m.Validate()
}

// Validate rejects orders the engine would refuse.
func (m Manifest) Validate() error {
	ids := map[string]bool{}
	for i, o := range m.Orders {
		if o.Weight <= 0 {
			return fmt.Errorf("order %d: weight must be positive", i)
		}
		if o.Destination == "" {
			return fmt.Errorf("order %d: destination is required", i)
		}
		if o.ID == "" {
			continue
		}
		if ids[o.ID] {
			return fmt.Errorf("order %d: duplicate id %s", i, o.ID)
		}
		ids[o.ID] = true
	}
	return nil
}

// Requests turns the orders into queued requests waiting at depot.
func (m Manifest) Requests(depot model.Location) []*model.Request {
	out := make([]*model.Request, len(m.Orders))
	for i, o := range m.Orders {
		out[i] = model.NewRequest(o.ID, o.Weight, o.Destination, depot)
	}
	return out
}

// ParseOrder parses the "<weight>:<destination>" shorthand.
func ParseOrder(s string) (Order, error) {
	w, dest, ok := strings.Cut(s, ":")
	if !ok {
		return Order{}, fmt.Errorf("order %q: expected <weight>:<destination>", s)
	}
	weight, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil {
		return Order{}, fmt.Errorf("order %q: invalid weight: %w", s, err)
	}
	o := Order{Weight: weight, Destination: model.Location(strings.TrimSpace(dest))}
	if o.Weight <= 0 || o.Destination == "" {
		return Order{}, fmt.Errorf("order %q: weight must be positive and destination set", s)
	}
	return o, nil
}

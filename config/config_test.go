package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dronedispatch/core/model"
)

//nolint:gocyclo
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `network:
  depot: Hub
  locations: [Hub, North, South]
  edges:
    - {from: Hub, to: North, weight: 4}
    - {from: North, to: South, weight: 1}
fleet:
  - id: A
    capacity: 2.5
    location: Hub
dispatch:
  workers: 3
  backoff_ms: 50
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  topic_prefix: "fleet"
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"depot", cfg.Network.Depot, model.Location("Hub")},
		{"locations", len(cfg.Network.Locations), 3},
		{"edge weight", cfg.Network.Edges[0].Weight, 4},
		{"fleet", len(cfg.Fleet), 1},
		{"capacity", cfg.Fleet[0].Capacity, 2.5},
		{"workers", cfg.Dispatch.Workers, 3},
		{"backoff_ms", cfg.Dispatch.BackoffMS, 50},
		{"unit_delay default", cfg.Dispatch.UnitDelayMS, 1000},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "fleet"},
		{"level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}

	g, err := cfg.Network.Graph()
	require.NoError(t, err)
	assert.Equal(t, 5, g.ShortestDistance("Hub", "South"))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, model.Location("Warehouse"), cfg.Network.Depot)
	assert.Len(t, cfg.Network.Locations, 4)
	require.Len(t, cfg.Fleet, 3)
	assert.Equal(t, CarrierConfig{ID: "DR-003", Capacity: 7, Location: "Warehouse"}, cfg.Fleet[2])
	assert.Equal(t, 10, cfg.Dispatch.Workers)
	assert.Equal(t, 60, cfg.Dispatch.ShutdownGraceSeconds)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	carriers := cfg.Carriers()
	require.Len(t, carriers, 3)
	assert.Equal(t, "DR-001", carriers[0].ID())
	assert.True(t, carriers[0].Available())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DRONE_DISPATCH__WORKERS", "4")
	t.Setenv("DRONE_LOGGING__LEVEL", "warn")
	t.Setenv("DRONE_NETWORK__DEPOT", "Uptown")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Dispatch.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, model.Location("Uptown"), cfg.Network.Depot)
	assert.Equal(t, model.Location("Uptown"), cfg.Fleet[0].Location)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown carrier location": `{"fleet":[{"id":"A","capacity":1,"location":"Mars"}]}`,
		"duplicate carrier":        `{"fleet":[{"id":"A","capacity":1,"location":"Warehouse"},{"id":"A","capacity":2,"location":"Warehouse"}]}`,
		"zero capacity":            `{"fleet":[{"id":"A","capacity":0,"location":"Warehouse"}]}`,
		"self loop":                `{"network":{"locations":["A"],"edges":[{"from":"A","to":"A","weight":1}]}}`,
		"unknown depot":            `{"network":{"depot":"Nowhere"}}`,
		"single worker":            `{"dispatch":{"workers":1}}`,
		"bad level":                `{"logging":{"level":"loud"}}`,
		"mqtt without broker":      `{"mqtt":{"enabled":true}}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

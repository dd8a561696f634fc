package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/dronedispatch/core/dispatch"
	"github.com/kilianp07/dronedispatch/core/metrics"
	"github.com/kilianp07/dronedispatch/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. DRONE_DISPATCH__WORKERS=4.
const EnvPrefix = "DRONE_"

type Config struct {
	Network  NetworkConfig   `json:"network"`
	Fleet    []CarrierConfig `json:"fleet"`
	Dispatch dispatch.Config `json:"dispatch"`
	Metrics  metrics.Config  `json:"metrics"`
	MQTT     mqtt.Config     `json:"mqtt"`
	Logging  LoggingConfig   `json:"logging"`
}

// Load reads the configuration file at path, applies environment overrides
// and defaults, then validates the result. An empty path yields the default
// configuration with environment overrides only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every empty section.
func (c *Config) SetDefaults() {
	c.Network.SetDefaults()
	if len(c.Fleet) == 0 {
		c.Fleet = DefaultFleet(c.Network.Depot)
	}
	c.Dispatch.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and the fleet against the network.
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := c.validateFleet(); err != nil {
		return fmt.Errorf("fleet: %w", err)
	}
	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	if c.MQTT.Enabled {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (c Config) validateFleet() error {
	known := make(map[string]bool, len(c.Network.Locations))
	for _, l := range c.Network.Locations {
		known[string(l)] = true
	}
	ids := make(map[string]bool, len(c.Fleet))
	for _, cc := range c.Fleet {
		if cc.ID == "" {
			return fmt.Errorf("carrier id is required")
		}
		if ids[cc.ID] {
			return fmt.Errorf("duplicate carrier %s", cc.ID)
		}
		ids[cc.ID] = true
		if cc.Capacity <= 0 {
			return fmt.Errorf("carrier %s: capacity must be positive", cc.ID)
		}
		if !known[string(cc.Location)] {
			return fmt.Errorf("carrier %s: unknown location %q", cc.ID, cc.Location)
		}
	}
	return nil
}

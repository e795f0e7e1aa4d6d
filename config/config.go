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

	"github.com/fbellom/parking-rfid-sim/core/probability"
	"github.com/fbellom/parking-rfid-sim/core/sim"
	"github.com/fbellom/parking-rfid-sim/infra/activity"
	"github.com/fbellom/parking-rfid-sim/infra/metrics"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig            `json:"server"`
	Simulation sim.EngineConfig        `json:"simulation"`
	Curves     probability.CurveConfig `json:"curves"`
	Activity   activity.Config         `json:"activity"`
	Influx     activity.InfluxConfig   `json:"influx"`
	MQTT       activity.MQTTConfig     `json:"mqtt"`
	Metrics    metrics.Config          `json:"metrics"`
}

// ServerConfig defines the HTTP listener and the simulation cadences.
type ServerConfig struct {
	Addr string `json:"addr"`
	// TickSeconds spaces tick invocations; PushSeconds spaces WebSocket
	// frames per connected client.
	TickSeconds int `json:"tick_seconds"`
	PushSeconds int `json:"push_seconds"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.TickSeconds == 0 {
		c.TickSeconds = 10
	}
	if c.PushSeconds == 0 {
		c.PushSeconds = 10
	}
}

// Validate checks mandatory fields.
func (c ServerConfig) Validate() error {
	if c.TickSeconds <= 0 {
		return fmt.Errorf("tick seconds must be positive")
	}
	if c.PushSeconds <= 0 {
		return fmt.Errorf("push seconds must be positive")
	}
	return nil
}

// Load reads the configuration file, applies K_-prefixed environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Server.SetDefaults()
	cfg.Simulation.SetDefaults()
	cfg.Curves.SetDefaults()
	cfg.Activity.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Server.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Simulation.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Curves.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Activity.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Influx.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Package activity provides the durable backends for the simulation's
// append-only activity log.
package activity

import (
	"fmt"

	"github.com/fbellom/parking-rfid-sim/core/activity"
)

// Config selects and locates the activity log backend.
type Config struct {
	// Backend selects the store type: "csv" or "jsonl".
	Backend string `json:"backend"`
	// Path is the file location of the activity log.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "csv"
	}
	if c.Path == "" {
		c.Path = "parking_simulation_log.csv"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Backend != "csv" && c.Backend != "jsonl" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// New opens the configured store. The boolean reports whether the backing
// file already existed.
func New(cfg Config) (activity.Store, bool, error) {
	switch cfg.Backend {
	case "csv":
		s, existed, err := NewCSVStore(cfg.Path)
		if err != nil {
			return nil, false, err
		}
		return s, existed, nil
	case "jsonl":
		s, existed, err := NewJSONLStore(cfg.Path)
		if err != nil {
			return nil, false, err
		}
		return s, existed, nil
	default:
		return nil, false, fmt.Errorf("unknown backend %s", cfg.Backend)
	}
}

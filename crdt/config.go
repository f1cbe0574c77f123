package crdt

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config configures a Replica at startup. It is normally loaded from a YAML
// file alongside the process, mirroring how the rest of the corpus keeps
// runtime knobs out of code.
type Config struct {
	// Agent identifies this replica's operations in the causal graph. Every
	// locally-originated operation is stamped with this agent id and the
	// next unused sequence number for it.
	Agent string `yaml:"agent"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogJSON selects the structured JSON encoder over the console encoder.
	LogJSON bool `yaml:"log_json"`

	// SnapshotPath, if non-empty, is the badger data directory a Replica
	// persists its node table to. An empty path keeps the replica
	// memory-only.
	SnapshotPath string `yaml:"snapshot_path"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() Config {
	return Config{
		Agent:    "local",
		LogLevel: "info",
		LogJSON:  false,
	}
}

// LoadConfig reads and parses a YAML config file, filling in defaults for
// anything the file leaves unset; an unset or empty agent gets a random id.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	// The built-in "local" agent id applies only when no file is supplied.
	cfg.Agent = ""

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("crdt: reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("crdt: parsing config %s: %w", path, err)
	}
	if cfg.Agent == "" {
		// No agent id configured: mint a random one rather than force every
		// embedding host to invent an identity scheme for ephemeral replicas.
		cfg.Agent = uuid.NewString()
	}
	return cfg, nil
}

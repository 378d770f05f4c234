// Package config loads process configuration from the environment,
// the same envconfig.Process(prefix, struct) shape used elsewhere in
// this ecosystem for operator-style services.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "metasecret"

// Config holds every tunable a metasecret node process needs: where its
// data lives, how it talks to other nodes, and how aggressively the
// sync gateway retries.
type Config struct {
	// DataDir is the directory device/vault state is persisted under.
	DataDir string `envconfig:"DATA_DIR" default:"./metasecret-data"`

	// Backend selects the repo.Repository implementation: "bolt", "sql",
	// or "memory" (memory is for tests/dry runs only).
	Backend string `envconfig:"BACKEND" default:"bolt"`

	// BindAddr is the address internal/syncserver listens on.
	BindAddr string `envconfig:"BIND_ADDR" default:":7331"`

	// ServerURL is the remote sync server this node's gateway talks to.
	ServerURL string `envconfig:"SERVER_URL" default:"http://localhost:7331"`

	// SyncInterval controls how often the gateway pull/push loop runs.
	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"1s"`

	// RequestTimeout bounds a single sync HTTP round trip.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	// MaxConsecutiveFailures is how many back-to-back sync failures the
	// gateway tolerates before it backs off to a slower retry cadence.
	MaxConsecutiveFailures int `envconfig:"MAX_CONSECUTIVE_FAILURES" default:"5"`

	// LogLevel follows zap's verbosity convention (0 = info).
	LogLevel int `envconfig:"LOG_LEVEL" default:"0"`

	// DevLogging switches to zap's human-readable development encoder.
	DevLogging bool `envconfig:"DEV_LOGGING" default:"false"`
}

// Load reads Config from environment variables prefixed METASECRET_.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}

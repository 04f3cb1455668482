// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package config loads and validates the application configuration from
// defaults, an optional YAML file, and environment variables, in that order
// of precedence (env highest).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Weights   WeightsConfig   `koanf:"weights"`
	Recommend RecommendConfig `koanf:"recommend"`
	NATS      NATSConfig      `koanf:"nats"`
	Storage   StorageConfig   `koanf:"storage"`
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// WeightsConfig maps action kinds to interaction weights. Stronger
// engagement gets a higher weight; all weights must be positive.
type WeightsConfig struct {
	View     float64 `koanf:"view"`
	Register float64 `koanf:"register"`
	Like     float64 `koanf:"like"`
}

// RecommendConfig tunes the query engine.
type RecommendConfig struct {
	// MaxRecentEvents is how many of a user's most recent events seed
	// the recommendation candidate search.
	MaxRecentEvents int `koanf:"max_recent_events" validate:"min=1,max=1000"`
	// MaxNeighbours caps similar events considered per seed event.
	MaxNeighbours int `koanf:"max_neighbours" validate:"min=1,max=1000"`
}

// NATSConfig holds messaging configuration.
type NATSConfig struct {
	URL            string `koanf:"url" validate:"required"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port" validate:"min=0,max=65535"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory" validate:"min=0"`
	MaxStore       int64  `koanf:"max_store" validate:"min=0"`

	DurableName string `koanf:"durable_name" validate:"required"`
	QueueGroup  string `koanf:"queue_group" validate:"required"`

	// Consumer partitioning.
	Partitions        int `koanf:"partitions" validate:"min=1,max=1024"`
	BufferSize        int `koanf:"buffer_size" validate:"min=1"`
	ThrottlePerSecond int `koanf:"throttle_per_second" validate:"min=0"`
}

// StorageConfig holds the similarity persistence settings.
type StorageConfig struct {
	// Path is the BadgerDB directory. Empty runs in-memory (no warm start).
	Path string `koanf:"path"`
	// WarmStart loads persisted similarities into memory on boot.
	WarmStart bool `koanf:"warm_start"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host" validate:"required"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`
}

// APIConfig holds query API settings.
type APIConfig struct {
	// DefaultMaxResults applies when a query omits max_results.
	DefaultMaxResults int `koanf:"default_max_results" validate:"min=1"`
	// MaxMaxResults caps the max_results a client may request.
	MaxMaxResults int `koanf:"max_max_results" validate:"min=1"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=0"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration, combining struct tag validation with
// rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	for kind, w := range map[string]float64{
		"view":     c.Weights.View,
		"register": c.Weights.Register,
		"like":     c.Weights.Like,
	} {
		if w <= 0 {
			return fmt.Errorf("config validation: weights.%s must be positive, got %v", kind, w)
		}
	}

	if c.API.DefaultMaxResults > c.API.MaxMaxResults {
		return fmt.Errorf("config validation: api.default_max_results (%d) exceeds api.max_max_results (%d)",
			c.API.DefaultMaxResults, c.API.MaxMaxResults)
	}

	return nil
}

// WeightMap returns the configured weights keyed by kind name, for the
// model's weight table.
func (c *Config) WeightMap() map[string]float64 {
	return map[string]float64{
		"view":     c.Weights.View,
		"register": c.Weights.Register,
		"like":     c.Weights.Like,
	}
}

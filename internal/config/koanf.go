// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/eventine/config.yaml",
	"/etc/eventine/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults, applied first and then
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Weights: WeightsConfig{
			View:     0.4,
			Register: 0.8,
			Like:     1.0,
		},
		Recommend: RecommendConfig{
			MaxRecentEvents: 10,
			MaxNeighbours:   10,
		},
		NATS: NATSConfig{
			URL:               "nats://127.0.0.1:4222",
			EmbeddedServer:    true,
			Host:              "127.0.0.1",
			Port:              4222,
			StoreDir:          "/data/nats/jetstream",
			MaxMemory:         1 << 30,  // 1GB
			MaxStore:          10 << 30, // 10GB
			DurableName:       "action-processor",
			QueueGroup:        "recommenders",
			Partitions:        8,
			BufferSize:        256,
			ThrottlePerSecond: 0, // Unlimited
		},
		Storage: StorageConfig{
			Path:      "/data/eventine/similarity",
			WarmStart: true,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8412,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			DefaultMaxResults: 10,
			MaxMaxResults:     100,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive from the environment as strings.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so random environment noise cannot leak
// into the configuration.
//
// Examples:
//   - WEIGHT_VIEW -> weights.view
//   - NATS_URL -> nats.url
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Weight mappings
		"weight_view":     "weights.view",
		"weight_register": "weights.register",
		"weight_like":     "weights.like",

		// Recommendation mappings
		"recommend_max_recent_events": "recommend.max_recent_events",
		"recommend_max_neighbours":    "recommend.max_neighbours",

		// NATS mappings
		"nats_url":          "nats.url",
		"nats_embedded":     "nats.embedded_server",
		"nats_host":         "nats.host",
		"nats_port":         "nats.port",
		"nats_store_dir":    "nats.store_dir",
		"nats_max_memory":   "nats.max_memory",
		"nats_max_store":    "nats.max_store",
		"nats_durable_name": "nats.durable_name",
		"nats_queue_group":  "nats.queue_group",
		"nats_partitions":   "nats.partitions",
		"nats_buffer_size":  "nats.buffer_size",
		"nats_throttle":     "nats.throttle_per_second",

		// Storage mappings
		"storage_path":       "storage.path",
		"storage_warm_start": "storage.warm_start",

		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// API mappings
		"api_default_max_results": "api.default_max_results",
		"api_max_max_results":     "api.max_max_results",
		"rate_limit_requests":     "api.rate_limit_reqs",
		"rate_limit_window":       "api.rate_limit_window",
		"cors_origins":            "api.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}

	if cfg.Weights.View != 0.4 || cfg.Weights.Register != 0.8 || cfg.Weights.Like != 1.0 {
		t.Errorf("unexpected default weights: %+v", cfg.Weights)
	}
	if cfg.Recommend.MaxRecentEvents != 10 || cfg.Recommend.MaxNeighbours != 10 {
		t.Errorf("unexpected recommend defaults: %+v", cfg.Recommend)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WEIGHT_VIEW", "0.25")
	t.Setenv("NATS_PARTITIONS", "16")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Weights.View != 0.25 {
		t.Errorf("weights.view = %v, want 0.25", cfg.Weights.View)
	}
	if cfg.NATS.Partitions != 16 {
		t.Errorf("nats.partitions = %d, want 16", cfg.NATS.Partitions)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server.port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.API.CORSOrigins) != 2 || cfg.API.CORSOrigins[0] != want[0] || cfg.API.CORSOrigins[1] != want[1] {
		t.Errorf("api.cors_origins = %v, want %v", cfg.API.CORSOrigins, want)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
weights:
  like: 2.0
recommend:
  max_neighbours: 25
server:
  port: 8080
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Weights.Like != 2.0 {
		t.Errorf("weights.like = %v, want 2.0", cfg.Weights.Like)
	}
	if cfg.Recommend.MaxNeighbours != 25 {
		t.Errorf("recommend.max_neighbours = %d, want 25", cfg.Recommend.MaxNeighbours)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	// Untouched sections keep defaults.
	if cfg.NATS.URL != "nats://127.0.0.1:4222" {
		t.Errorf("nats.url = %q, want default", cfg.NATS.URL)
	}
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want env override 9999", cfg.Server.Port)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero weight", mutate: func(c *Config) { c.Weights.View = 0 }},
		{name: "negative weight", mutate: func(c *Config) { c.Weights.Like = -1 }},
		{name: "zero recent events", mutate: func(c *Config) { c.Recommend.MaxRecentEvents = 0 }},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "zero partitions", mutate: func(c *Config) { c.NATS.Partitions = 0 }},
		{name: "default exceeds max results", mutate: func(c *Config) {
			c.API.DefaultMaxResults = 500
			c.API.MaxMaxResults = 100
		}},
		{name: "timeout too small", mutate: func(c *Config) { c.Server.Timeout = 10 * time.Millisecond }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() succeeded, want error")
			}
		})
	}
}

func TestEnvTransform_DropsUnknownKeys(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("envTransformFunc(PATH) = %q, want empty", got)
	}
	if got := envTransformFunc("NATS_URL"); got != "nats.url" {
		t.Errorf("envTransformFunc(NATS_URL) = %q, want nats.url", got)
	}
}

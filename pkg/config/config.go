package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for s3courier.
//
// YAML example:
//   region: "eu-west-1"
//   profile: "work"
//   maxAttempts: 12
//   gzip: false
//   tracing:
//     enabled: false
//
// Environment overrides:
//   S3COURIER_REGION overrides Region when set.
//   S3COURIER_ENDPOINT overrides Endpoint (host only, no scheme).
//   S3COURIER_PROFILE overrides Profile.
//   S3COURIER_MAX_ATTEMPTS overrides MaxAttempts (positive integer).
//   S3COURIER_GZIP toggles Gzip ("1"/"true"/"on" or "0"/"false"/"off").
//   S3COURIER_CONFIG path to YAML config file; if empty, loader tries
//   ./config.yaml then defaults.
type Config struct {
	Region      string        `yaml:"region"`
	Endpoint    string        `yaml:"endpoint,omitempty"` // optional host override
	Profile     string        `yaml:"profile,omitempty"`  // shared credentials profile
	MaxAttempts int           `yaml:"maxAttempts"`
	Gzip        bool          `yaml:"gzip"`
	Tracing     TracingConfig `yaml:"tracing"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`              // OTLP collector endpoint (host:port or URL)
	Protocol    string  `yaml:"protocol,omitempty"`    // "grpc" (default) or "http"
	SampleRatio float64 `yaml:"sampleRatio,omitempty"` // 0.0 - 1.0
	ServiceName string  `yaml:"serviceName,omitempty"` // override service.name; default "s3courier"
}

// Default returns a Config with safe, local defaults.
func Default() Config {
	return Config{
		Region:      "us-east-1",
		MaxAttempts: 12,
		Gzip:        false,
		Tracing: TracingConfig{
			Enabled:     false,
			Protocol:    "grpc",
			SampleRatio: 0.0,
			ServiceName: "s3courier",
		},
	}
}

// Load reads configuration from path. If path is empty, it attempts to read
// ./config.yaml; if not found, returns Default().
func Load(path string) (Config, error) {
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path == "" {
		cfg := Default()
		return applyEnvOverrides(cfg), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			return applyEnvOverrides(cfg), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("S3COURIER_REGION"); v != "" {
		cfg.Region = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3COURIER_ENDPOINT"); v != "" {
		cfg.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3COURIER_PROFILE"); v != "" {
		cfg.Profile = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3COURIER_MAX_ATTEMPTS"); v != "" {
		if x, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && x > 0 {
			cfg.MaxAttempts = x
		}
	}
	if v := os.Getenv("S3COURIER_GZIP"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			cfg.Gzip = true
		case "0", "false", "no", "n", "off":
			cfg.Gzip = false
		}
	}
	// Tracing overrides
	if v := os.Getenv("S3COURIER_TRACING_ENABLED"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			cfg.Tracing.Enabled = true
		case "0", "false", "no", "n", "off":
			cfg.Tracing.Enabled = false
		}
	}
	if v := os.Getenv("S3COURIER_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("S3COURIER_TRACING_PROTOCOL"); v != "" {
		p := strings.ToLower(strings.TrimSpace(v))
		if p == "grpc" || p == "http" {
			cfg.Tracing.Protocol = p
		}
	}
	if v := os.Getenv("S3COURIER_TRACING_SAMPLE"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			if f < 0 {
				f = 0
			}
			if f > 1 {
				f = 1
			}
			cfg.Tracing.SampleRatio = f
		}
	}
	if v := os.Getenv("S3COURIER_TRACING_SERVICE"); v != "" {
		cfg.Tracing.ServiceName = strings.TrimSpace(v)
	}
	return cfg
}

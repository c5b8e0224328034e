// Package config loads and validates the course-sync.yaml tool
// configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a course-sync.yaml configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if env := os.Getenv("COURSE_SYNC_TOKEN"); env != "" {
		cfg.AuthToken = env
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return &cfg, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.BaseURL == "" {
		errs = append(errs, "'base_url' is required")
	} else if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("'base_url' must be an http(s) origin, got '%s'", cfg.BaseURL))
	}

	if cfg.AuthToken == "" {
		errs = append(errs, "'auth_token' is required (set it in the config or via COURSE_SYNC_TOKEN)")
	}

	if cfg.ControlURL == "" {
		errs = append(errs, "'control_url' is required")
	} else if !strings.HasPrefix(cfg.ControlURL, "ws://") && !strings.HasPrefix(cfg.ControlURL, "wss://") {
		errs = append(errs, fmt.Sprintf("'control_url' must be a ws(s) origin, got '%s'", cfg.ControlURL))
	}

	if cfg.CDNBaseURL == "" {
		errs = append(errs, "'cdn_url' is required")
	}

	if cfg.Pacing.Window < 0 || cfg.Pacing.PauseSeconds < 0 || cfg.Pacing.RetrySeconds < 0 {
		errs = append(errs, "'pacing' values must not be negative")
	}

	return errs
}

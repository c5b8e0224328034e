package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "course-sync.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
base_url: https://platform.example.com/api
auth_token: secret
control_url: wss://platform.example.com/control
cdn_url: https://cdn.example.com
image_dir: images
pacing:
  window: 25
  pause_seconds: 30
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://platform.example.com/api" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.AuthToken != "secret" {
		t.Errorf("AuthToken = %q", cfg.AuthToken)
	}
	if cfg.Pacing.Window != 25 || cfg.Pacing.PauseSeconds != 30 {
		t.Errorf("Pacing = %+v", cfg.Pacing)
	}
}

func TestLoadEnvTokenOverridesFile(t *testing.T) {
	path := writeConfig(t, `
base_url: https://platform.example.com/api
auth_token: from-file
control_url: wss://platform.example.com/control
cdn_url: https://cdn.example.com
`)
	t.Setenv("COURSE_SYNC_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthToken != "from-env" {
		t.Errorf("AuthToken = %q, want the environment override", cfg.AuthToken)
	}
}

func TestLoadEnvTokenSatisfiesRequirement(t *testing.T) {
	path := writeConfig(t, `
base_url: https://platform.example.com/api
control_url: wss://platform.example.com/control
cdn_url: https://cdn.example.com
`)
	t.Setenv("COURSE_SYNC_TOKEN", "env-only")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AuthToken != "env-only" {
		t.Errorf("AuthToken = %q", cfg.AuthToken)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing base url", Config{AuthToken: "t", ControlURL: "wss://x", CDNBaseURL: "c"}, "base_url"},
		{"base url wrong scheme", Config{BaseURL: "ftp://x", AuthToken: "t", ControlURL: "wss://x", CDNBaseURL: "c"}, "base_url"},
		{"missing token", Config{BaseURL: "https://x", ControlURL: "wss://x", CDNBaseURL: "c"}, "auth_token"},
		{"missing control url", Config{BaseURL: "https://x", AuthToken: "t", CDNBaseURL: "c"}, "control_url"},
		{"control url wrong scheme", Config{BaseURL: "https://x", AuthToken: "t", ControlURL: "https://x", CDNBaseURL: "c"}, "control_url"},
		{"missing cdn url", Config{BaseURL: "https://x", AuthToken: "t", ControlURL: "wss://x"}, "cdn_url"},
		{"negative pacing", Config{BaseURL: "https://x", AuthToken: "t", ControlURL: "wss://x", CDNBaseURL: "c", Pacing: Pacing{Window: -1}}, "pacing"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := Validate(&tc.cfg)
			if len(errs) == 0 {
				t.Fatal("Validate passed, want an error")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e, tc.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors = %v, want one mentioning %q", errs, tc.want)
			}
		})
	}
}

func TestLoadInvalidConfigIsValidationError(t *testing.T) {
	path := writeConfig(t, `base_url: https://platform.example.com/api`)
	t.Setenv("COURSE_SYNC_TOKEN", "")

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(verr.Errors) < 2 {
		t.Errorf("errors = %v, want the failures accumulated", verr.Errors)
	}
}

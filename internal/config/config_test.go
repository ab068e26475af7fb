package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromMissingFile(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.WorkHours != 8 {
		t.Errorf("WorkHours = %v, want 8", cfg.WorkHours)
	}
	if cfg.HoursResolution != 15 {
		t.Errorf("HoursResolution = %v, want 15", cfg.HoursResolution)
	}
	if cfg.PortalURL != DefaultPortalURL {
		t.Errorf("PortalURL = %q, want %q", cfg.PortalURL, DefaultPortalURL)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "WorkHours: 7.5\nHoursResolution: 6\nPortalURL: https://example.com\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkHours != 7.5 {
		t.Errorf("WorkHours = %v, want 7.5", cfg.WorkHours)
	}
	if cfg.HoursResolution != 6 {
		t.Errorf("HoursResolution = %v, want 6", cfg.HoursResolution)
	}
	if cfg.PortalURL != "https://example.com" {
		t.Errorf("PortalURL = %q", cfg.PortalURL)
	}
	// Unset paths fall back to defaults
	if cfg.DatabasePath == "" || cfg.CredentialsPath == "" {
		t.Error("default paths should be filled in")
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &Config{
		WorkHours:       8,
		HoursResolution: 15,
		PortalURL:       "https://example.com",
		DatabasePath:    "/tmp/data.db",
		CredentialsPath: "/tmp/creds.age",
		UserID:          "user@example.com",
		SchedulerKey:    "wrapped-key",
	}
	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.UserID != cfg.UserID || loaded.SchedulerKey != cfg.SchedulerKey {
		t.Errorf("roundtrip lost remote identity: %+v", loaded)
	}
	if loaded.WorkHours != cfg.WorkHours {
		t.Errorf("WorkHours = %v, want %v", loaded.WorkHours, cfg.WorkHours)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			WorkHours:       8,
			HoursResolution: 15,
			PortalURL:       DefaultPortalURL,
			DatabasePath:    "/tmp/data.db",
			CredentialsPath: "/tmp/creds.age",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero work hours", func(c *Config) { c.WorkHours = 0 }, "WorkHours"},
		{"negative work hours", func(c *Config) { c.WorkHours = -1 }, "WorkHours"},
		{"zero resolution", func(c *Config) { c.HoursResolution = 0 }, "HoursResolution"},
		{"missing portal", func(c *Config) { c.PortalURL = "" }, "PortalURL"},
		{"missing database path", func(c *Config) { c.DatabasePath = "" }, "DatabasePath"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestSettingsConversion(t *testing.T) {
	cfg := &Config{WorkHours: 7.5, HoursResolution: 6}
	s := cfg.Settings()
	if s.WorkHours != 7*time.Hour+30*time.Minute {
		t.Errorf("WorkHours = %v, want 7h30m", s.WorkHours)
	}
	if s.Resolution != 6*time.Minute {
		t.Errorf("Resolution = %v, want 6m", s.Resolution)
	}
}

func TestRemoteConfigured(t *testing.T) {
	cfg := &Config{}
	if cfg.RemoteConfigured() {
		t.Error("empty config should not be remote-configured")
	}
	cfg.AWSRegion = "us-east-1"
	cfg.AWSHost = "api.example.com"
	cfg.SchedulerEndpoint = "/prod/scheduler"
	if !cfg.RemoteConfigured() {
		t.Error("complete remote settings should be remote-configured")
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luejerry/autoclocker/internal/timecalc"
)

// DefaultPortalURL is the timekeeping portal the clocker talks to.
const DefaultPortalURL = "https://workforcenow.adp.com"

type Config struct {
	// WorkHours is the desired paid hours per day, as decimal hours.
	WorkHours float64 `yaml:"WorkHours"`
	// HoursResolution is the smallest paid increment, in minutes.
	HoursResolution float64 `yaml:"HoursResolution"`

	PortalURL       string `yaml:"PortalURL"`
	DatabasePath    string `yaml:"DatabasePath"`
	CredentialsPath string `yaml:"CredentialsPath"`

	// Remote autoclocker service settings. Only needed for --remote
	// scheduling.
	AWSRegion         string `yaml:"AWSRegion"`
	AWSHost           string `yaml:"AWSHost"`
	AWSAccessKey      string `yaml:"AWSAccessKey"`
	AWSSecretKey      string `yaml:"AWSSecretKey"`
	SchedulerEndpoint string `yaml:"SchedulerEndpoint"`
	SaveCredsEndpoint string `yaml:"SaveCredsEndpoint"`

	// UserID and SchedulerKey identify saved credentials with the remote
	// service. SchedulerKey is the wrapped data key returned by savecreds;
	// it cannot decrypt anything on its own.
	UserID       string `yaml:"UserID"`
	SchedulerKey string `yaml:"SchedulerKey"`
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPath())
}

func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return getDefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	if cfg.WorkHours == 0 {
		cfg.WorkHours = 8
	}
	if cfg.HoursResolution == 0 {
		cfg.HoursResolution = 15
	}
	if cfg.PortalURL == "" {
		cfg.PortalURL = DefaultPortalURL
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = defaultDataFile("data.db")
	}
	if cfg.CredentialsPath == "" {
		cfg.CredentialsPath = defaultDataFile("credentials.age")
	}

	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	cfg.CredentialsPath = expandHome(cfg.CredentialsPath)

	return &cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(getConfigPath(), cfg)
}

func SaveTo(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func getConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".autoclocker.yaml")
}

func defaultDataFile(name string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".autoclocker", name)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

func getDefaultConfig() *Config {
	return &Config{
		WorkHours:       8,
		HoursResolution: 15,
		PortalURL:       DefaultPortalURL,
		DatabasePath:    defaultDataFile("data.db"),
		CredentialsPath: defaultDataFile("credentials.age"),
	}
}

// Settings converts the configured day parameters to calculator settings.
func (c *Config) Settings() timecalc.Settings {
	return timecalc.Settings{
		WorkHours:  time.Duration(c.WorkHours * float64(time.Hour)),
		Resolution: time.Duration(c.HoursResolution * float64(time.Minute)),
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s - %s", e.Field, e.Message)
}

// Validate checks the configuration for common issues
func (c *Config) Validate() error {
	if c.WorkHours <= 0 {
		return &ValidationError{Field: "WorkHours", Message: "work hours must be positive"}
	}
	if c.HoursResolution <= 0 {
		return &ValidationError{Field: "HoursResolution", Message: "hours resolution must be positive"}
	}
	if c.PortalURL == "" {
		return &ValidationError{Field: "PortalURL", Message: "portal URL is required"}
	}
	if c.DatabasePath == "" {
		return &ValidationError{Field: "DatabasePath", Message: "database path is required"}
	}
	if c.CredentialsPath == "" {
		return &ValidationError{Field: "CredentialsPath", Message: "credentials path is required"}
	}
	return nil
}

// RemoteConfigured returns true if the remote autoclocker service settings
// are complete enough to attempt a request.
func (c *Config) RemoteConfigured() bool {
	return c.AWSRegion != "" && c.AWSHost != "" && c.SchedulerEndpoint != ""
}

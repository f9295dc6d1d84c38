package eufy

import (
	"fmt"
	"time"
)

// Config defines runtime configuration for the Eufy client.
type Config struct {
	Email        string
	PasswordFile string
	StatePath    string
	CountryCode  string
	PollInterval time.Duration
	IPOverrides  map[string]string
}

func (c Config) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("eufy email is required")
	}
	if c.PasswordFile == "" {
		return fmt.Errorf("eufy password_file is required")
	}
	if c.StatePath == "" {
		return fmt.Errorf("eufy state_path is required")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("eufy poll_interval must not be negative")
	}
	return nil
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval == 0 {
		return 30 * time.Second
	}
	return c.PollInterval
}

func (c Config) countryCode() string {
	if c.CountryCode == "" {
		return "1"
	}
	return c.CountryCode
}

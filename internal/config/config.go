// Package config loads hookbufferd's runtime configuration: environment
// variables first, with an optional TOML file supplying defaults beneath
// them. The feeding mechanism mirrors the teacher's golobby/config-based
// feeders: an EnvFeeder reading struct tags, fed in order so later feeders
// win.
package config

import (
	"fmt"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

// Config holds every setting hookbufferd needs at startup.
type Config struct {
	Port            int    `env:"HOOKBUFFER_PORT"`
	DestinationURL  string `env:"HOOKBUFFER_DESTINATION_URL"`
	User            string `env:"HOOKBUFFER_USER"`
	Pass            string `env:"HOOKBUFFER_PASS"`
	CredentialsFile string `env:"HOOKBUFFER_CREDENTIALS_FILE"`
	ConfigFile      string `env:"HOOKBUFFER_CONFIG_FILE"`
}

const (
	defaultPort           = 8000
	defaultDestinationURL = "https://discord.com/"
)

// Load reads a Config from an optional TOML file (if HOOKBUFFER_CONFIG_FILE
// names one) and then from the environment. It does not apply defaults: the
// caller runs Validate on the result and logs the warnings it returns.
// Environment variables always win over the TOML file: the TOML
// feeder is added first and the env feeder added second, so its values
// overwrite whatever the file already set.
func Load() (*Config, error) {
	var cfg Config

	// A first pass of the env feeder alone to discover HOOKBUFFER_CONFIG_FILE
	// before we know whether to add a TOML feeder.
	if err := config.New().AddFeeder(feeder.Env{}).AddStruct(&cfg).Feed(); err != nil {
		return nil, fmt.Errorf("config: feeding env: %w", err)
	}

	if cfg.ConfigFile != "" {
		var fromFile Config
		c := config.New().
			AddFeeder(feeder.Toml{Path: cfg.ConfigFile}).
			AddFeeder(feeder.Env{}).
			AddStruct(&fromFile)
		if err := c.Feed(); err != nil {
			return nil, fmt.Errorf("config: feeding from %s: %w", cfg.ConfigFile, err)
		}
		fromFile.ConfigFile = cfg.ConfigFile
		cfg = fromFile
	}

	return &cfg, nil
}

// Warning describes a non-fatal problem Validate corrected with a default.
type Warning struct {
	Field   string
	Problem string
}

// Validate fills in defaults for unset or invalid fields and returns any
// corrections made, so the caller can log them. It never fails: hookbufferd
// always has a usable configuration after Validate runs.
func (c *Config) Validate() []Warning {
	var warnings []Warning

	if c.Port <= 0 || c.Port > 65535 {
		warnings = append(warnings, Warning{Field: "HOOKBUFFER_PORT", Problem: "unset or out of range, defaulting to 8000"})
		c.Port = defaultPort
	}

	if c.DestinationURL == "" {
		c.DestinationURL = defaultDestinationURL
	}
	if !strings.HasSuffix(c.DestinationURL, "/") {
		c.DestinationURL += "/"
	}

	return warnings
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ptrj.com/venus/automation"
	"ptrj.com/venus/mill"
)

// Config is the whole application configuration, loaded from one YAML file.
// Secrets can be overridden from the environment so the file can be checked
// in without them.
type Config struct {
	// testing runs against db_ptrj_mill_test with dates shifted back one
	// month; real runs against db_ptrj_mill unchanged.
	Mode string `yaml:"mode"`

	StagingDB string `yaml:"staging_db"`

	Server struct {
		Addr            string `yaml:"addr"`
		SigningSecret   string `yaml:"signing_secret"` // base64
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"server"`

	Mill struct {
		Profiles []mill.Profile `yaml:"profiles"`
	} `yaml:"mill"`

	Browser automation.BrowserConfig `yaml:"browser"`

	Slack struct {
		Token        string `yaml:"token"`
		InfoChannel  string `yaml:"info_channel"`
		ErrorChannel string `yaml:"error_channel"`
	} `yaml:"slack"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = string(mill.ModeTesting)
	}
	if c.StagingDB == "" {
		c.StagingDB = "staging.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:5173"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("VENUS_SIGNING_SECRET"); v != "" {
		c.Server.SigningSecret = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Slack.Token = v
	}
	if v := os.Getenv("MILLWARE_USERNAME"); v != "" {
		c.Browser.Username = v
	}
	if v := os.Getenv("MILLWARE_PASSWORD"); v != "" {
		c.Browser.Password = v
	}
}

func (c *Config) validate() error {
	if c.Mode != string(mill.ModeTesting) && c.Mode != string(mill.ModeReal) {
		return fmt.Errorf("invalid mode %q, want testing or real", c.Mode)
	}
	return nil
}

func (c *Config) MillMode() mill.Mode {
	return mill.Mode(c.Mode)
}

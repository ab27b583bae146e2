package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"standby/internal/domain"
)

var validate = validator.New()

type Config struct {
	Audio   AudioConfig   `yaml:"audio"`
	Session SessionConfig `yaml:"session"`
	Feed    FeedConfig    `yaml:"feed"`
	Log     LogConfig     `yaml:"log"`
}

type AudioConfig struct {
	Device          string `yaml:"device"`
	FramesPerBuffer int    `yaml:"frames_per_buffer" validate:"omitempty,gte=64,lte=16384"`
}

type SessionConfig struct {
	Mode            string  `yaml:"mode" validate:"oneof=detect max average"`
	ThresholdDB     float64 `yaml:"threshold_db" validate:"gte=-60,lte=0"`
	MinDB           float64 `yaml:"min_db" validate:"gte=-100,lte=0"`
	Channels        []int   `yaml:"channels" validate:"min=1,dive,gte=0"`
	DurationSeconds int     `yaml:"duration_seconds" validate:"gte=0"`
	Quiet           bool    `yaml:"quiet"`
}

type FeedConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Session.Mode == "" {
		c.Session.Mode = "detect"
	}
	if c.Session.MinDB == 0 {
		c.Session.MinDB = domain.DefaultFloorDB
	}
	if len(c.Session.Channels) == 0 {
		c.Session.Channels = []int{0}
	}
	if c.Audio.FramesPerBuffer == 0 {
		c.Audio.FramesPerBuffer = 1024
	}
	if c.Feed.Addr == "" {
		c.Feed.Addr = ":8090"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks field ranges. Cross-field and device-dependent rules are
// enforced by the session itself.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SessionSpec builds the domain session from the configuration and runs its
// own validation, so a bad combination (like a floor at or above the
// threshold in detect mode) is caught before any device opens.
func (c *Config) SessionSpec() (domain.Session, error) {
	session := domain.Session{
		Mode:        domain.Mode(c.Session.Mode),
		ThresholdDB: c.Session.ThresholdDB,
		FloorDB:     c.Session.MinDB,
		Channels:    append([]int(nil), c.Session.Channels...),
		Duration:    time.Duration(c.Session.DurationSeconds) * time.Second,
		Quiet:       c.Session.Quiet,
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

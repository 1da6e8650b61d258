package config

import (
	"fmt"
	"os"

	"github.com/open-teleop/legged-teleop/domain/teleop"
	"gopkg.in/yaml.v3"
)

// Config represents the operational teleop configuration (teleop_config.yaml)
type Config struct {
	Version     string `yaml:"version" json:"version"`
	ConfigID    string `yaml:"config_id" json:"config_id"`
	LastUpdated string `yaml:"last_updated" json:"last_updated"`
	RobotID     string `yaml:"robot_id" json:"robot_id"`

	Limits         teleop.Limits       `yaml:"limits" json:"limits"`
	Channels       teleop.ChannelTable `yaml:"channels" json:"channels"`
	StrictChannels bool                `yaml:"strict_channels" json:"strict_channels"`
}

// DefaultConfig returns a config carrying the default limits and channel table.
// Metadata fields are left empty.
func DefaultConfig() *Config {
	settings := teleop.DefaultSettings()
	return &Config{
		Limits:         settings.Limits,
		Channels:       settings.Channels,
		StrictChannels: settings.StrictChannels,
	}
}

// LoadConfig loads and validates the operational configuration from path
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("error loading config file '%s': %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig, so omitted limits or
// channels keep their defaults, then validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Settings returns the synthesizer settings carried by the config
func (c *Config) Settings() teleop.Settings {
	return teleop.Settings{
		Limits:         c.Limits,
		Channels:       c.Channels,
		StrictChannels: c.StrictChannels,
	}
}

// Marshal renders the config as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

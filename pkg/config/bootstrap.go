package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Input source names
const (
	InputSourceZeroMQ    = "zeromq"
	InputSourceWebSocket = "websocket"
)

// BootstrapConfig holds the initial configuration loaded from controller_config.yaml
type BootstrapConfig struct {
	Logging LoggingConfig         `yaml:"logging"`
	Server  BootstrapServerConfig `yaml:"server"`
	ZeroMQ  ZeroMQBootstrap       `yaml:"zeromq"`
	MQTT    MQTTBootstrap         `yaml:"mqtt"`
	Input   InputConfig           `yaml:"input"`
	Data    DataConfig            `yaml:"data"`
}

// LoggingConfig holds logging settings from bootstrap
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogPath    string `yaml:"log_path,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
}

// BootstrapServerConfig holds HTTP server settings
type BootstrapServerConfig struct {
	HTTPPort int `yaml:"http_port"`
}

// ZeroMQBootstrap holds the operator input and command output endpoints
type ZeroMQBootstrap struct {
	InputConnectAddress string `yaml:"input_connect_address"`
	InputTopic          string `yaml:"input_topic"`
	CommandBindAddress  string `yaml:"command_bind_address"`
	InputTimeoutMs      int    `yaml:"input_timeout_ms"`

	// ConfigRequestAddress, when set, binds a REP socket answering CONFIG_REQUEST.
	ConfigRequestAddress string `yaml:"config_request_address,omitempty"`
}

// MQTTBootstrap holds the posture feedback subscription. An empty broker means
// no feedback: the loop echoes its own setpoints as posture.
type MQTTBootstrap struct {
	Broker       string `yaml:"broker"`
	ClientID     string `yaml:"client_id"`
	PostureTopic string `yaml:"posture_topic"`
	QoS          byte   `yaml:"qos"`
}

// InputConfig selects where operator samples come from
type InputConfig struct {
	Source string `yaml:"source"`
}

// DataConfig holds data directory settings from bootstrap
type DataConfig struct {
	Directory            string `yaml:"directory"`
	TeleopConfigFilename string `yaml:"teleop_config_file"`
}

// Defaults applied to optional bootstrap fields
const (
	DefaultHTTPPort       = 8080
	DefaultInputTimeoutMs = 300
	DefaultMQTTClientID   = "legged-teleop"
	DefaultPostureTopic   = "robot/posture"
)

// LoadBootstrapConfig loads the bootstrap configuration from controller_config.yaml
func LoadBootstrapConfig(configDir string) (*BootstrapConfig, error) {
	bootstrapConfigPath := filepath.Join(configDir, "controller_config.yaml")

	data, err := os.ReadFile(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error reading bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	var bootstrapCfg BootstrapConfig
	if err := yaml.Unmarshal(data, &bootstrapCfg); err != nil {
		return nil, fmt.Errorf("error parsing bootstrap config file '%s': %w", bootstrapConfigPath, err)
	}

	bootstrapCfg.applyDefaults()
	if err := bootstrapCfg.validate(); err != nil {
		return nil, err
	}

	return &bootstrapCfg, nil
}

func (b *BootstrapConfig) applyDefaults() {
	if b.Logging.Level == "" {
		b.Logging.Level = "info"
	}
	if b.Server.HTTPPort == 0 {
		b.Server.HTTPPort = DefaultHTTPPort
	}
	if b.ZeroMQ.InputTimeoutMs == 0 {
		b.ZeroMQ.InputTimeoutMs = DefaultInputTimeoutMs
	}
	if b.Input.Source == "" {
		b.Input.Source = InputSourceZeroMQ
	}
	if b.MQTT.ClientID == "" {
		b.MQTT.ClientID = DefaultMQTTClientID
	}
	if b.MQTT.PostureTopic == "" {
		b.MQTT.PostureTopic = DefaultPostureTopic
	}
}

func (b *BootstrapConfig) validate() error {
	if b.ZeroMQ.CommandBindAddress == "" {
		return fmt.Errorf("missing required field in bootstrap config: zeromq.command_bind_address")
	}
	if b.Data.Directory == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.directory")
	}
	if b.Data.TeleopConfigFilename == "" {
		return fmt.Errorf("missing required field in bootstrap config: data.teleop_config_file")
	}

	switch b.Input.Source {
	case InputSourceZeroMQ:
		if b.ZeroMQ.InputConnectAddress == "" {
			return fmt.Errorf("missing required field in bootstrap config: zeromq.input_connect_address")
		}
	case InputSourceWebSocket:
	default:
		return fmt.Errorf("invalid bootstrap config: input.source must be %q or %q, got %q",
			InputSourceZeroMQ, InputSourceWebSocket, b.Input.Source)
	}

	if b.ZeroMQ.InputTimeoutMs < 0 {
		return fmt.Errorf("invalid bootstrap config: zeromq.input_timeout_ms must be positive, got %d", b.ZeroMQ.InputTimeoutMs)
	}
	if b.MQTT.QoS > 2 {
		return fmt.Errorf("invalid bootstrap config: mqtt.qos must be 0, 1 or 2, got %d", b.MQTT.QoS)
	}
	return nil
}

// InputTimeout is how long an input source waits for a sample before the
// cycle counts as a timeout.
func (b *BootstrapConfig) InputTimeout() time.Duration {
	return time.Duration(b.ZeroMQ.InputTimeoutMs) * time.Millisecond
}

// TeleopConfigPath returns the path of the operational config file
func (b *BootstrapConfig) TeleopConfigPath() string {
	return filepath.Join(b.Data.Directory, b.Data.TeleopConfigFilename)
}

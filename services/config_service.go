package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/open-teleop/legged-teleop/domain/teleop"
	"github.com/open-teleop/legged-teleop/pkg/config"
	customlog "github.com/open-teleop/legged-teleop/pkg/log"
)

// ErrNoConfig is returned when no operational configuration has been loaded.
var ErrNoConfig = errors.New("teleop configuration not loaded")

// ConfigPublisher defines the interface for publishing configuration updates.
type ConfigPublisher interface {
	PublishConfigUpdatedNotification(cfg *config.Config) error
}

// ConfigApplier receives validated synthesizer settings, typically the command loop.
type ConfigApplier interface {
	ApplyConfig(settings teleop.Settings) error
}

// TeleopConfigService defines the interface for managing the operational teleop configuration.
type TeleopConfigService interface {
	LoadConfig() error
	GetCurrentConfig() *config.Config
	GetCurrentConfigYAML() ([]byte, error)
	UpdateConfig(newConfigYAML []byte) error
	PersistConfig(yamlData []byte) error
	SetPublisher(p ConfigPublisher)
	SetApplier(a ConfigApplier)
}

// teleopConfigService implements the TeleopConfigService interface.
type teleopConfigService struct {
	operationalConfigPath string
	logger                customlog.Logger
	configPublisher       ConfigPublisher
	applier               ConfigApplier
	currentConfig         *config.Config
	mu                    sync.RWMutex
}

// NewTeleopConfigService creates a new TeleopConfigService. A failed initial
// load is logged and leaves the service without a config; one can still be
// supplied through UpdateConfig.
func NewTeleopConfigService(operationalConfigPath string, logger customlog.Logger) (TeleopConfigService, error) {
	if operationalConfigPath == "" {
		return nil, fmt.Errorf("operational configuration path cannot be empty")
	}
	if logger == nil {
		logger = customlog.NewLogrusLogger("info")
		logger.Warnf("No logger provided to TeleopConfigService, using default.")
	}

	service := &teleopConfigService{
		operationalConfigPath: operationalConfigPath,
		logger:                logger,
	}

	if err := service.LoadConfig(); err != nil {
		logger.Warnf("Initial load of operational config '%s' failed: %v. Service created, but config is nil.", operationalConfigPath, err)
		return service, nil
	}

	logger.Infof("TeleopConfigService initialized successfully for path: %s", operationalConfigPath)
	return service, nil
}

// LoadConfig reads and validates the operational config file. On failure the
// previously loaded config is dropped.
func (s *teleopConfigService) LoadConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Infof("Loading operational configuration from: %s", s.operationalConfigPath)
	cfg, err := config.LoadConfig(s.operationalConfigPath)
	if err != nil {
		s.currentConfig = nil
		return err
	}

	s.currentConfig = cfg
	s.logger.Infof("Successfully loaded operational configuration ID: %s, Version: %s", cfg.ConfigID, cfg.Version)
	return nil
}

// GetCurrentConfig returns the loaded configuration, nil if none. Callers must
// not modify it.
func (s *teleopConfigService) GetCurrentConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentConfig
}

// GetCurrentConfigYAML returns the raw YAML of the operational config file.
func (s *teleopConfigService) GetCurrentConfigYAML() ([]byte, error) {
	s.mu.RLock()
	path := s.operationalConfigPath
	loaded := s.currentConfig != nil
	s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !loaded {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("error reading operational config file '%s': %w", path, err)
	}
	return data, nil
}

// UpdateConfig validates, persists and applies a new operational configuration,
// then publishes a notification. An identical config is accepted without side
// effects.
func (s *teleopConfigService) UpdateConfig(newConfigYAML []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCfg, err := config.ParseConfig(newConfigYAML)
	if err != nil {
		s.logger.Warnf("Rejected teleop configuration update: %v", err)
		return err
	}

	if s.currentConfig != nil && cmp.Equal(s.currentConfig, newCfg) {
		s.logger.Infof("Provided configuration is identical to the current one. No update needed.")
		return nil
	}

	// Persist before applying so a restart sees what is running
	if err := s.persistConfigUnlocked(newConfigYAML); err != nil {
		return err
	}

	if s.applier != nil {
		if err := s.applier.ApplyConfig(newCfg.Settings()); err != nil {
			return fmt.Errorf("applying configuration: %w", err)
		}
	}

	oldCfgID := "N/A"
	if s.currentConfig != nil {
		oldCfgID = s.currentConfig.ConfigID
	}
	s.currentConfig = newCfg
	s.logger.Infof("Updated operational configuration. ID %s -> %s, Version: %s", oldCfgID, newCfg.ConfigID, newCfg.Version)

	if shared := newCfg.Channels.SharedChannels(); len(shared) > 0 {
		s.logger.Warnf("Channels shared between axes: %v", shared)
	}

	if s.configPublisher != nil {
		go func(publisher ConfigPublisher, cfg *config.Config) {
			if err := publisher.PublishConfigUpdatedNotification(cfg); err != nil {
				s.logger.Warnf("Failed to publish config update notification: %v", err)
			}
		}(s.configPublisher, newCfg)
	}

	return nil
}

// PersistConfig writes the given YAML data to the operational config file path.
func (s *teleopConfigService) PersistConfig(yamlData []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistConfigUnlocked(yamlData)
}

// persistConfigUnlocked writes through a temp file and rename. The caller holds the lock.
func (s *teleopConfigService) persistConfigUnlocked(yamlData []byte) error {
	dir := filepath.Dir(s.operationalConfigPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".teleop_config-*.yaml")
	if err != nil {
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(yamlData); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}
	if err := os.Rename(tmpName, s.operationalConfigPath); err != nil {
		return fmt.Errorf("error writing operational config file '%s': %w", s.operationalConfigPath, err)
	}

	s.logger.Infof("Persisted configuration to %s", s.operationalConfigPath)
	return nil
}

// SetPublisher allows injecting the ConfigPublisher after initialization.
func (s *teleopConfigService) SetPublisher(p ConfigPublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configPublisher = p
}

// SetApplier sets the component that receives new settings on update.
func (s *teleopConfigService) SetApplier(a ConfigApplier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applier = a
}

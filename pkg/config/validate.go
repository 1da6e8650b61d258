package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidYAML is returned when a config document cannot be decoded.
	ErrInvalidYAML = errors.New("invalid YAML format")
	// ErrValidation wraps every semantic validation failure.
	ErrValidation = errors.New("validation failed")
)

// IsValidationError reports whether err came from decoding or validating a
// config document rather than from I/O.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidYAML) || errors.Is(err, ErrValidation)
}

// Validate checks metadata and the synthesizer settings.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config cannot be nil", ErrValidation)
	}

	if c.ConfigID == "" || c.Version == "" || c.RobotID == "" {
		return fmt.Errorf("%w: missing required fields (config_id, version, robot_id)", ErrValidation)
	}

	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

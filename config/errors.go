package config

import "errors"

var (
	// ErrInvalidValue is returned when a setting cannot be parsed
	ErrInvalidValue = errors.New("invalid config value")
)

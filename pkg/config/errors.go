package config

import "errors"

// Sentinel errors for config loading and validation.
var (
	ErrModeNotFound = errors.New("mode not found")
	ErrConfigFileMissing = errors.New("config file missing")
	ErrInvalidConfig = errors.New("config failed validation")
)

package siteconfig

import "errors"

var (
	// ErrInvalidConfig is returned when a configuration cannot be normalized.
	ErrInvalidConfig = errors.New("siteconfig: invalid config")
	// ErrConfigNotFound is returned when no stored configuration exists.
	ErrConfigNotFound = errors.New("siteconfig: not found")
)

package config

import "errors"

// Errors returned by config operations.
var (
	// ErrUnknownFormat indicates an unsupported configuration file format.
	ErrUnknownFormat = errors.New("config: unknown format")

	// ErrInvalidConfig indicates a structurally invalid device configuration.
	ErrInvalidConfig = errors.New("config: invalid device config")

	// ErrCorruptState indicates the persisted state file could not be decoded.
	ErrCorruptState = errors.New("config: corrupt state file")
)

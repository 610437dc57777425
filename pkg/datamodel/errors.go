package datamodel

import "errors"

// Errors returned by datamodel operations and cluster implementations.
var (
	// ErrClusterNotFound indicates the requested cluster does not exist.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrUnsupportedAttribute indicates the attribute is not supported by the cluster.
	ErrUnsupportedAttribute = errors.New("unsupported attribute")

	// ErrUnsupportedWrite indicates the attribute does not support writes.
	ErrUnsupportedWrite = errors.New("unsupported write")

	// ErrConstraintError indicates a constraint violation.
	ErrConstraintError = errors.New("constraint error")

	// ErrInvalidInState indicates the operation is invalid in the current state.
	ErrInvalidInState = errors.New("invalid in current state")

	// ErrTypeMismatch indicates a Value does not hold the expected kind.
	ErrTypeMismatch = errors.New("value type mismatch")
)

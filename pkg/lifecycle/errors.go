package lifecycle

import "errors"

// Errors returned by Manager wiring calls. Endpoint callbacks themselves
// never return errors; their failures are logged.
var (
	// ErrBindingExists indicates a binding for the cluster is already added.
	ErrBindingExists = errors.New("lifecycle: binding already exists for cluster")

	// ErrBindingNotFound indicates no binding exists for the cluster.
	ErrBindingNotFound = errors.New("lifecycle: no binding for cluster")
)

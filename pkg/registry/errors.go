package registry

import (
	"errors"
	"fmt"

	"github.com/backkem/clusterhost/pkg/datamodel"
)

// Errors returned by registry operations.
var (
	// ErrNoPaths indicates a handler reported an empty path set.
	ErrNoPaths = errors.New("registry: handler serves no paths")

	// ErrDuplicatePath indicates a path is already served by another
	// handler, is repeated within the handler's own path set, or the
	// handler itself is already registered.
	ErrDuplicatePath = errors.New("registry: duplicate cluster path")

	// ErrNotFound indicates the path or handler is not registered.
	ErrNotFound = errors.New("registry: not found")

	// ErrStartupFailed indicates a handler's Startup hook rejected the
	// registration. The registration has been rolled back.
	ErrStartupFailed = errors.New("registry: cluster startup failed")

	// ErrNotComparable indicates a handler whose dynamic type cannot be
	// used as a map key, so its identity cannot be tracked.
	ErrNotComparable = errors.New("registry: handler is not comparable")
)

// PathConflictError reports the first path that made a registration fail.
type PathConflictError struct {
	Path datamodel.ConcreteClusterPath
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("registry: path %s already registered", e.Path)
}

// Unwrap lets errors.Is match ErrDuplicatePath.
func (e *PathConflictError) Unwrap() error {
	return ErrDuplicatePath
}

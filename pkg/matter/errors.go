package matter

import (
	"errors"
	"fmt"

	"github.com/backkem/clusterhost/pkg/datamodel"
)

// Package-level errors.
var (
	// ErrAlreadyStarted is returned when Start() is called on a running node.
	ErrAlreadyStarted = errors.New("matter: node already started")

	// ErrNotStarted is returned when an operation requires a running node.
	ErrNotStarted = errors.New("matter: node not started")

	// ErrAlreadyStopped is returned when Stop() is called on a stopped node.
	ErrAlreadyStopped = errors.New("matter: node already stopped")

	// ErrInvalidConfig is returned when NodeConfig validation fails.
	ErrInvalidConfig = errors.New("matter: invalid configuration")

	// ErrDeviceRequired is returned when NodeConfig.Device is nil.
	ErrDeviceRequired = errors.New("matter: device configuration is required")

	// ErrInvalidVendorID is returned when VendorID is invalid.
	ErrInvalidVendorID = errors.New("matter: invalid vendor ID")

	// ErrInvalidProductID is returned when ProductID is invalid.
	ErrInvalidProductID = errors.New("matter: invalid product ID")

	// ErrEndpointExists is returned when adding an endpoint with a duplicate ID.
	ErrEndpointExists = errors.New("matter: endpoint already exists")

	// ErrEndpointNotFound is returned when an endpoint is not found.
	ErrEndpointNotFound = errors.New("matter: endpoint not found")

	// ErrRootEndpointReserved is returned when trying to add or remove endpoint 0.
	ErrRootEndpointReserved = errors.New("matter: endpoint 0 is reserved for root endpoint")

	// ErrEndpointNotDestroyable is returned when removing an endpoint
	// without the destroyable flag.
	ErrEndpointNotDestroyable = errors.New("matter: endpoint is not destroyable")

	// ErrEndpointIDsExhausted is returned when no endpoint ID is left to
	// allocate.
	ErrEndpointIDsExhausted = errors.New("matter: no unused endpoint ID left")
)

// BringUpError reports clusters that stayed inactive after an endpoint was
// enabled. The endpoint itself is still enabled.
type BringUpError struct {
	Endpoint datamodel.EndpointID
	Clusters []datamodel.ClusterID
}

func (e *BringUpError) Error() string {
	return fmt.Sprintf("matter: endpoint %d: clusters %v not active", e.Endpoint, e.Clusters)
}

package datamodel

import "context"

// ServerCluster is a hosted cluster handler.
// The registry stores ServerCluster references and never the concrete
// cluster types, so any number of cluster kinds can share one registry.
//
// A ServerCluster may serve the same logic on more than one path; Paths
// returns every (endpoint, cluster) pair it answers for. The set must not
// change while the cluster is registered.
type ServerCluster interface {
	// Paths returns the concrete cluster paths this handler serves.
	Paths() []ConcreteClusterPath

	// DataVersion returns the current data version for path.
	DataVersion(path ConcreteClusterPath) DataVersion

	// FeatureMap returns the supported features bitmap (0xFFFC).
	FeatureMap() uint32

	// AttributeList returns metadata for every attribute served on path,
	// including the global attributes.
	AttributeList(path ConcreteClusterPath) []AttributeEntry

	// ReadAttribute reads one attribute. Returns ErrUnsupportedAttribute
	// for attributes the instance does not expose.
	ReadAttribute(ctx context.Context, path ConcreteAttributePath) (Value, error)

	// Shutdown is called by the registry after the handler's paths have
	// been removed.
	Shutdown(reason ShutdownType)
}

// ClusterStarter is implemented by clusters that need access to the
// hosting registry. Startup runs during registration, after all paths are
// visible; an error aborts the registration.
type ClusterStarter interface {
	ServerCluster

	Startup(ctx ClusterContext) error
}

// ClusterContext is handed to a cluster when it starts.
type ClusterContext struct {
	// View gives read-only access to the registry the cluster lives in.
	View ClusterView

	// Listener receives attribute change notifications. May be nil.
	Listener AttributeChangeListener
}

// ClusterView is the read-only side of a cluster registry.
type ClusterView interface {
	// Lookup returns the handler serving path.
	Lookup(path ConcreteClusterPath) (ServerCluster, error)

	// Endpoints returns every endpoint with at least one registered cluster.
	Endpoints() []EndpointID

	// ClustersOn returns the cluster IDs registered on an endpoint.
	ClustersOn(endpoint EndpointID) []ClusterID
}

// AttributeChangeListener is notified when attribute values change.
// Used for subscription reporting by the dispatch runtime.
type AttributeChangeListener interface {
	OnAttributeChanged(path ConcreteAttributePath)
}

// AttributeChangeFunc adapts a function to AttributeChangeListener.
type AttributeChangeFunc func(path ConcreteAttributePath)

// OnAttributeChanged calls f(path).
func (f AttributeChangeFunc) OnAttributeChanged(path ConcreteAttributePath) {
	f(path)
}

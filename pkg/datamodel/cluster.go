package datamodel

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ClusterBase provides common functionality for cluster implementations.
// Embed a *ClusterBase in your cluster to get path bookkeeping, global
// attribute handling, data version management and the startup context.
//
// Every ClusterBase gets a fresh instance ID, so two handlers built for
// the same endpoint at different times are distinguishable in logs.
type ClusterBase struct {
	id         ClusterID
	paths      []ConcreteClusterPath
	revision   uint16
	featureMap uint32
	instanceID uuid.UUID

	// Populated at construction and never mutated afterward.
	versions map[ConcreteClusterPath]*atomic.Uint32

	mu      sync.RWMutex
	ctx     ClusterContext
	started bool
}

// NewClusterBase creates a cluster base serving a single endpoint.
// The data version is initialized to a random value.
func NewClusterBase(id ClusterID, endpointID EndpointID, revision uint16) *ClusterBase {
	return NewMultiPathClusterBase(id, []EndpointID{endpointID}, revision)
}

// NewMultiPathClusterBase creates a cluster base serving the same cluster
// on several endpoints with one handler instance.
func NewMultiPathClusterBase(id ClusterID, endpoints []EndpointID, revision uint16) *ClusterBase {
	cb := &ClusterBase{
		id:         id,
		revision:   revision,
		instanceID: uuid.New(),
		versions:   make(map[ConcreteClusterPath]*atomic.Uint32, len(endpoints)),
	}
	for _, ep := range endpoints {
		p := ConcreteClusterPath{Endpoint: ep, Cluster: id}
		cb.paths = append(cb.paths, p)
		v := new(atomic.Uint32)
		v.Store(randomDataVersion())
		cb.versions[p] = v
	}
	return cb
}

// ID returns the cluster ID.
func (c *ClusterBase) ID() ClusterID {
	return c.id
}

// EndpointID returns the first endpoint this cluster serves.
func (c *ClusterBase) EndpointID() EndpointID {
	if len(c.paths) == 0 {
		return InvalidEndpointID
	}
	return c.paths[0].Endpoint
}

// Paths implements ServerCluster.
func (c *ClusterBase) Paths() []ConcreteClusterPath {
	return append([]ConcreteClusterPath(nil), c.paths...)
}

// HasPath reports whether path is served by this cluster.
func (c *ClusterBase) HasPath(path ConcreteClusterPath) bool {
	_, ok := c.versions[path]
	return ok
}

// InstanceID returns the unique ID of this handler instance.
func (c *ClusterBase) InstanceID() uuid.UUID {
	return c.instanceID
}

// ClusterRevision returns the cluster revision.
func (c *ClusterBase) ClusterRevision() uint16 {
	return c.revision
}

// FeatureMap implements ServerCluster.
func (c *ClusterBase) FeatureMap() uint32 {
	return c.featureMap
}

// SetFeatureMap sets the feature map bits. Only call during construction.
func (c *ClusterBase) SetFeatureMap(features uint32) {
	c.featureMap = features
}

// DataVersion implements ServerCluster. Unknown paths report 0.
func (c *ClusterBase) DataVersion(path ConcreteClusterPath) DataVersion {
	v, ok := c.versions[path]
	if !ok {
		return 0
	}
	return DataVersion(v.Load())
}

// IncrementDataVersion bumps the data version of one served path.
func (c *ClusterBase) IncrementDataVersion(path ConcreteClusterPath) {
	if v, ok := c.versions[path]; ok {
		v.Add(1)
	}
}

// Startup stores the cluster context. Clusters overriding Startup must
// call it.
func (c *ClusterBase) Startup(ctx ClusterContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ctx
	c.started = true
	return nil
}

// Shutdown implements ServerCluster. It drops the context captured by
// Startup. Clusters overriding Shutdown must call it.
func (c *ClusterBase) Shutdown(reason ShutdownType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = ClusterContext{}
	c.started = false
}

// Started reports whether the cluster is between Startup and Shutdown.
func (c *ClusterBase) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Context returns the context captured at Startup.
func (c *ClusterBase) Context() ClusterContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

// NotifyAttributeChanged bumps the data version and informs the listener.
// Call this whenever an attribute value changes.
func (c *ClusterBase) NotifyAttributeChanged(path ConcreteAttributePath) {
	c.IncrementDataVersion(path.ClusterPath())

	c.mu.RLock()
	listener := c.ctx.Listener
	c.mu.RUnlock()

	if listener != nil {
		listener.OnAttributeChanged(path)
	}
}

// ReadGlobalAttribute handles reading of global attributes.
// Returns false if attrID is not a global attribute.
func (c *ClusterBase) ReadGlobalAttribute(attrID AttributeID, attrList []AttributeEntry) (Value, bool) {
	switch attrID {
	case GlobalAttrClusterRevision:
		return UintValue(uint64(c.revision)), true
	case GlobalAttrFeatureMap:
		return UintValue(uint64(c.featureMap)), true
	case GlobalAttrAttributeList:
		ids := make([]Value, len(attrList))
		for i, attr := range attrList {
			ids[i] = UintValue(uint64(attr.ID))
		}
		return ListValue(ids...), true
	default:
		return Value{}, false
	}
}

// randomDataVersion generates a random initial data version.
func randomDataVersion() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return binary.LittleEndian.Uint32(buf[:])
}

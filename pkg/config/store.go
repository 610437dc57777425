package config

import (
	"fmt"
	"sync"

	"github.com/backkem/clusterhost/pkg/datamodel"
)

// AttributeStore holds configured attribute values.
//
// A value being present means the attribute is enabled on that path.
// All methods must be safe for concurrent use.
type AttributeStore interface {
	ReadAttribute(path datamodel.ConcreteAttributePath) (datamodel.Value, bool, error)
	WriteAttribute(path datamodel.ConcreteAttributePath, v datamodel.Value) error
	DeleteAttribute(path datamodel.ConcreteAttributePath) error
}

// Store is an AttributeStore that also keeps node counters.
type Store interface {
	AttributeStore

	// LoadMinUnusedEndpointID returns the lowest endpoint ID never handed
	// out, and false if no value was saved yet.
	LoadMinUnusedEndpointID() (datamodel.EndpointID, bool, error)
	SaveMinUnusedEndpointID(id datamodel.EndpointID) error
}

// MemoryStore is an in-memory Store.
// Useful for testing and as the defaults layer of a FileStore.
type MemoryStore struct {
	mu        sync.RWMutex
	attrs     map[datamodel.ConcreteAttributePath]datamodel.Value
	minUnused datamodel.EndpointID
	hasMin    bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attrs: make(map[datamodel.ConcreteAttributePath]datamodel.Value),
	}
}

// NewMemoryStoreFromConfig creates a store seeded with every cluster's
// feature map and configured attributes.
func NewMemoryStoreFromConfig(cfg *DeviceConfig) (*MemoryStore, error) {
	m := NewMemoryStore()
	for i := range cfg.Endpoints {
		if err := m.LoadEndpoint(&cfg.Endpoints[i]); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// LoadEndpoint seeds the store with one endpoint's cluster configuration.
func (m *MemoryStore) LoadEndpoint(ep *EndpointConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cl := range ep.Clusters {
		base := datamodel.ConcreteClusterPath{
			Endpoint: datamodel.EndpointID(ep.ID),
			Cluster:  datamodel.ClusterID(cl.ID),
		}
		m.attrs[base.Attribute(datamodel.GlobalAttrFeatureMap)] = datamodel.UintValue(uint64(cl.FeatureMap))

		for _, attr := range cl.Attributes {
			v, err := datamodel.ValueOf(attr.Value)
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, base.Attribute(datamodel.AttributeID(attr.ID)), err)
			}
			m.attrs[base.Attribute(datamodel.AttributeID(attr.ID))] = v
		}
	}
	return nil
}

// DropEndpoint removes every attribute configured on endpoint.
func (m *MemoryStore) DropEndpoint(endpoint datamodel.EndpointID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for p := range m.attrs {
		if p.Endpoint == endpoint {
			delete(m.attrs, p)
		}
	}
}

// ReadAttribute implements AttributeStore.
func (m *MemoryStore) ReadAttribute(path datamodel.ConcreteAttributePath) (datamodel.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.attrs[path]
	return v, ok, nil
}

// WriteAttribute implements AttributeStore.
func (m *MemoryStore) WriteAttribute(path datamodel.ConcreteAttributePath, v datamodel.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attrs[path] = v
	return nil
}

// DeleteAttribute implements AttributeStore.
func (m *MemoryStore) DeleteAttribute(path datamodel.ConcreteAttributePath) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.attrs, path)
	return nil
}

// LoadMinUnusedEndpointID implements Store.
func (m *MemoryStore) LoadMinUnusedEndpointID() (datamodel.EndpointID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minUnused, m.hasMin, nil
}

// SaveMinUnusedEndpointID implements Store.
func (m *MemoryStore) SaveMinUnusedEndpointID(id datamodel.EndpointID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minUnused = id
	m.hasMin = true
	return nil
}

// Len returns the number of stored attribute values.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attrs)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)

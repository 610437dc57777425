package lifecycle

import (
	"fmt"
	"slices"
	"sync"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/pion/logging"
)

// Manager owns the binding table of a node and fans endpoint events out
// to it.
type Manager struct {
	mu        sync.RWMutex
	bindings  []Handle
	byCluster map[datamodel.ClusterID]Handle

	log logging.LeveledLogger
}

// NewManager creates an empty manager. A nil factory uses the pion default.
func NewManager(lf logging.LoggerFactory) *Manager {
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Manager{
		byCluster: make(map[datamodel.ClusterID]Handle),
		log:       lf.NewLogger("lifecycle"),
	}
}

// Add appends a binding. Only one binding per cluster ID is allowed.
func (m *Manager) Add(b Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byCluster[b.ClusterID()]; ok {
		return fmt.Errorf("%w %s (%s)", ErrBindingExists, b.ClusterID(), b.Name())
	}
	m.bindings = append(m.bindings, b)
	m.byCluster[b.ClusterID()] = b
	return nil
}

// Bindings returns the bindings in the order they were added.
func (m *Manager) Bindings() []Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.bindings)
}

// Binding returns the binding for cluster.
func (m *Manager) Binding(cluster datamodel.ClusterID) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byCluster[cluster]
	return b, ok
}

// OnEndpointInit fires the init event on every binding, in order.
func (m *Manager) OnEndpointInit(ep datamodel.EndpointID) {
	m.log.Debugf("endpoint %d init", ep)
	for _, b := range m.Bindings() {
		b.OnEndpointInit(ep)
	}
}

// OnEndpointShutdown fires the shutdown event on every binding, in reverse
// order.
func (m *Manager) OnEndpointShutdown(ep datamodel.EndpointID, reason datamodel.ShutdownType) {
	m.log.Debugf("endpoint %d shutdown (%s)", ep, reason)
	bindings := m.Bindings()
	for i := len(bindings) - 1; i >= 0; i-- {
		bindings[i].OnEndpointShutdown(ep, reason)
	}
}

// InitCluster fires the init event for a single cluster on ep.
func (m *Manager) InitCluster(ep datamodel.EndpointID, cluster datamodel.ClusterID) error {
	b, ok := m.Binding(cluster)
	if !ok {
		return fmt.Errorf("%w %s", ErrBindingNotFound, cluster)
	}
	b.OnEndpointInit(ep)
	return nil
}

// ShutdownCluster fires the shutdown event for a single cluster on ep.
func (m *Manager) ShutdownCluster(ep datamodel.EndpointID, cluster datamodel.ClusterID, reason datamodel.ShutdownType) error {
	b, ok := m.Binding(cluster)
	if !ok {
		return fmt.Errorf("%w %s", ErrBindingNotFound, cluster)
	}
	b.OnEndpointShutdown(ep, reason)
	return nil
}

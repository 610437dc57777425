package matter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/backkem/clusterhost/pkg/clusters/generaldiagnostics"
	"github.com/backkem/clusterhost/pkg/clusters/onoff"
	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
	"github.com/backkem/clusterhost/pkg/lifecycle"
	"github.com/backkem/clusterhost/pkg/registry"
	"github.com/pion/logging"
)

// Node hosts the server clusters of one device. It owns the cluster
// registry and the bring-up manager, and turns endpoint enable/disable
// into cluster init/shutdown events.
type Node struct {
	config NodeConfig
	log    logging.LeveledLogger

	// Serializes topology changes. Held while lifecycle callbacks run.
	opMu sync.Mutex

	mu        sync.RWMutex
	state     NodeState
	endpoints map[datamodel.EndpointID]*endpoint
	minUnused datamodel.EndpointID

	defaults    *config.MemoryStore
	store       config.Store
	registry    *registry.Registry
	provider    *registry.Provider
	gate        *featuregate.Gate
	manager     *lifecycle.Manager
	diagnostics generaldiagnostics.Provider
}

// NewNode creates a node with the given configuration. Endpoints are
// loaded but not enabled; call Start() to bring them up.
func NewNode(cfg NodeConfig) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	lf := cfg.LoggerFactory
	n := &Node{
		config:    cfg,
		state:     NodeStateUninitialized,
		log:       lf.NewLogger("matter"),
		endpoints: make(map[datamodel.EndpointID]*endpoint),
	}

	if err := n.initStore(); err != nil {
		return nil, err
	}

	n.registry = registry.New(registry.Config{
		LoggerFactory: lf,
		Metrics:       registry.NewMetrics(cfg.MetricsRegisterer),
	})
	n.provider = registry.NewProvider(n.registry)
	n.gate = featuregate.New(n.store, lf)
	n.manager = lifecycle.NewManager(lf)

	n.diagnostics = cfg.Diagnostics
	if n.diagnostics == nil {
		tracker, err := generaldiagnostics.NewBootTracker(n.store, datamodel.RootEndpointID)
		if err != nil {
			return nil, err
		}
		n.diagnostics = tracker
	}

	for _, epCfg := range cfg.Device.Endpoints {
		n.endpoints[datamodel.EndpointID(epCfg.ID)] = &endpoint{config: epCfg}
	}
	if err := n.loadMinUnused(); err != nil {
		return nil, err
	}

	err := n.registerStandardBindings(lifecycle.Deps{
		Registry:      n.registry,
		Gate:          n.gate,
		LoggerFactory: lf,
		Metrics:       lifecycle.NewMetrics(cfg.MetricsRegisterer),
	})
	if err != nil {
		return nil, err
	}

	n.setState(NodeStateInitialized)
	return n, nil
}

// initStore builds the defaults layer from the device configuration and,
// with a state path, the persisted overlay on top of it.
func (n *Node) initStore() error {
	defaults, err := config.NewMemoryStoreFromConfig(n.config.Device)
	if err != nil {
		return err
	}
	n.defaults = defaults
	n.store = defaults

	if n.config.StatePath != "" {
		fs, err := config.OpenFileStore(n.config.StatePath, defaults, n.config.LoggerFactory)
		if err != nil {
			return err
		}
		n.store = fs
	}
	return nil
}

// loadMinUnused restores the endpoint ID allocation counter. It never
// moves below the highest configured endpoint.
func (n *Node) loadMinUnused() error {
	next := datamodel.EndpointID(1)
	for id := range n.endpoints {
		if id >= next {
			next = id + 1
		}
	}

	saved, ok, err := n.store.LoadMinUnusedEndpointID()
	if err != nil {
		return err
	}
	if ok && saved >= next {
		n.minUnused = saved
		return nil
	}

	n.minUnused = next
	return n.store.SaveMinUnusedEndpointID(next)
}

// Start enables every configured endpoint in ascending ID order.
// Cluster bring-up failures do not stop the node; they are returned joined
// once every endpoint has been processed. If ctx is cancelled first, the
// endpoints already enabled are shut down again, the node returns to
// Initialized and the context error is returned.
func (n *Node) Start(ctx context.Context) error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	if state := n.State(); !state.CanStart() {
		if state.IsRunning() {
			return ErrAlreadyStarted
		}
		return ErrAlreadyStopped
	}
	n.setState(NodeStateStarting)

	var (
		errs    []error
		started []datamodel.EndpointID
	)
	for _, id := range n.endpointIDs() {
		if err := ctx.Err(); err != nil {
			n.abortStart(started)
			return fmt.Errorf("start aborted after %d endpoint(s): %w", len(started), err)
		}
		if err := n.enableLocked(id); err != nil {
			errs = append(errs, err)
		}
		started = append(started, id)
	}

	n.setState(NodeStateRunning)
	n.log.Infof("node started with %d endpoint(s), %d cluster path(s)", len(n.endpointIDs()), n.registry.Len())
	return errors.Join(errs...)
}

// abortStart undoes a partial Start.
func (n *Node) abortStart(started []datamodel.EndpointID) {
	slices.Reverse(started)
	for _, id := range started {
		n.disableLocked(id, datamodel.ShutdownGraceful)
	}
	n.setState(NodeStateInitialized)
	n.log.Warnf("start cancelled, %d endpoint(s) shut down again", len(started))
}

// Stop disables every endpoint in descending ID order.
func (n *Node) Stop() error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	if state := n.State(); !state.CanStop() {
		if state == NodeStateStopped {
			return ErrAlreadyStopped
		}
		return ErrNotStarted
	}
	n.setState(NodeStateStopping)

	ids := n.endpointIDs()
	slices.Reverse(ids)
	for _, id := range ids {
		n.disableLocked(id, datamodel.ShutdownGraceful)
	}

	if cp, ok := n.diagnostics.(interface{ Checkpoint() error }); ok {
		if err := cp.Checkpoint(); err != nil {
			n.log.Warnf("failed to persist operational hours: %v", err)
		}
	}

	n.setState(NodeStateStopped)
	n.log.Info("node stopped")
	return nil
}

// AddEndpoint adds an endpoint at runtime. An ID of 0 allocates the next
// unused ID. On a running node the endpoint is enabled immediately; a
// *BringUpError is returned alongside the ID when some clusters did not
// come up.
func (n *Node) AddEndpoint(epCfg config.EndpointConfig) (datamodel.EndpointID, error) {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	n.mu.Lock()
	id, err := n.allocateLocked(datamodel.EndpointID(epCfg.ID))
	if err != nil {
		n.mu.Unlock()
		return 0, err
	}
	epCfg.ID = uint16(id)
	if err := epCfg.Validate(); err != nil {
		n.mu.Unlock()
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := n.defaults.LoadEndpoint(&epCfg); err != nil {
		n.mu.Unlock()
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	n.endpoints[id] = &endpoint{config: epCfg}

	minUnused := n.minUnused
	if id >= minUnused {
		minUnused = id + 1
		n.minUnused = minUnused
	}
	n.mu.Unlock()

	if err := n.store.SaveMinUnusedEndpointID(minUnused); err != nil {
		n.log.Warnf("failed to persist endpoint counter: %v", err)
	}
	n.log.Infof("endpoint %d added", id)

	if !n.State().IsRunning() {
		return id, nil
	}
	return id, n.enableLocked(id)
}

// allocateLocked picks the ID for a new endpoint. Requires n.mu.
func (n *Node) allocateLocked(requested datamodel.EndpointID) (datamodel.EndpointID, error) {
	if requested == datamodel.InvalidEndpointID {
		return 0, fmt.Errorf("%w: endpoint %d", ErrInvalidConfig, requested)
	}
	if requested != datamodel.RootEndpointID {
		if _, exists := n.endpoints[requested]; exists {
			return 0, fmt.Errorf("%w: %d", ErrEndpointExists, requested)
		}
		return requested, nil
	}

	for id := n.minUnused; id < datamodel.InvalidEndpointID; id++ {
		if _, exists := n.endpoints[id]; !exists && id != datamodel.RootEndpointID {
			return id, nil
		}
	}
	return 0, ErrEndpointIDsExhausted
}

// EnableEndpoint fires cluster init events for every cluster configured on
// the endpoint. Enabling an enabled endpoint is a no-op.
func (n *Node) EnableEndpoint(id datamodel.EndpointID) error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	if _, ok := n.endpointConfig(id); !ok {
		return fmt.Errorf("%w: %d", ErrEndpointNotFound, id)
	}
	return n.enableLocked(id)
}

// DisableEndpoint fires graceful shutdown events for every cluster of the
// endpoint. Disabling a disabled endpoint is a no-op.
func (n *Node) DisableEndpoint(id datamodel.EndpointID) error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	if _, ok := n.endpointConfig(id); !ok {
		return fmt.Errorf("%w: %d", ErrEndpointNotFound, id)
	}
	n.disableLocked(id, datamodel.ShutdownGraceful)
	return nil
}

// RemoveEndpoint shuts the endpoint's clusters down for removal and drops
// the endpoint. Only destroyable endpoints can be removed.
func (n *Node) RemoveEndpoint(id datamodel.EndpointID) error {
	n.opMu.Lock()
	defer n.opMu.Unlock()

	if id == datamodel.RootEndpointID {
		return ErrRootEndpointReserved
	}
	epCfg, ok := n.endpointConfig(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrEndpointNotFound, id)
	}
	if !epCfg.Destroyable {
		return fmt.Errorf("%w: %d", ErrEndpointNotDestroyable, id)
	}

	n.disableLocked(id, datamodel.ShutdownRemoved)

	n.mu.Lock()
	delete(n.endpoints, id)
	n.mu.Unlock()
	n.defaults.DropEndpoint(id)

	n.log.Infof("endpoint %d removed", id)
	return nil
}

// enableLocked brings an endpoint's clusters up in configuration order.
// Requires n.opMu.
func (n *Node) enableLocked(id datamodel.EndpointID) error {
	n.mu.Lock()
	ep, ok := n.endpoints[id]
	if !ok || ep.enabled {
		n.mu.Unlock()
		return nil
	}
	ep.enabled = true
	clusters := ep.config.ClusterIDs()
	n.mu.Unlock()

	var failed []datamodel.ClusterID
	for _, cl := range clusters {
		if err := n.manager.InitCluster(id, cl); err != nil {
			n.log.Warnf("endpoint %d: %v", id, err)
			continue
		}
		h, _ := n.manager.Binding(cl)
		if h.Placement().Allows(id) && h.State(id) != lifecycle.StateActive {
			failed = append(failed, cl)
		}
	}

	n.log.Debugf("endpoint %d enabled", id)
	if len(failed) > 0 {
		return &BringUpError{Endpoint: id, Clusters: failed}
	}
	return nil
}

// disableLocked takes an endpoint's clusters down in reverse configuration
// order. Requires n.opMu.
func (n *Node) disableLocked(id datamodel.EndpointID, reason datamodel.ShutdownType) {
	n.mu.Lock()
	ep, ok := n.endpoints[id]
	if !ok || !ep.enabled {
		n.mu.Unlock()
		return
	}
	ep.enabled = false
	clusters := ep.config.ClusterIDs()
	n.mu.Unlock()

	slices.Reverse(clusters)
	for _, cl := range clusters {
		if err := n.manager.ShutdownCluster(id, cl, reason); err != nil {
			n.log.Debugf("endpoint %d: %v", id, err)
		}
	}
	n.log.Debugf("endpoint %d disabled (%s)", id, reason)
}

// Toggle flips the On/Off cluster on an endpoint.
func (n *Node) Toggle(id datamodel.EndpointID) error {
	c, err := n.registry.Get(id, onoff.ClusterID)
	if err != nil {
		return err
	}
	oo, ok := c.(*onoff.Cluster)
	if !ok {
		return fmt.Errorf("%w: endpoint %d", datamodel.ErrTypeMismatch, id)
	}
	return oo.Toggle()
}

func (n *Node) setState(s NodeState) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()

	if n.config.OnStateChanged != nil {
		n.config.OnStateChanged(s)
	}
}

// State returns the current node state.
func (n *Node) State() NodeState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// Registry returns the node's cluster registry.
func (n *Node) Registry() *registry.Registry {
	return n.registry
}

// Provider returns the read-side adapter for a dispatch runtime.
func (n *Node) Provider() *registry.Provider {
	return n.provider
}

// Manager returns the bring-up manager.
func (n *Node) Manager() *lifecycle.Manager {
	return n.manager
}

// Store returns the attribute store backing the node.
func (n *Node) Store() config.Store {
	return n.store
}

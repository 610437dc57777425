// Package registry maps concrete cluster paths to the cluster handlers
// serving them.
//
// A handler may serve several paths. Registration is all-or-nothing: either
// every path of the handler is committed or none is. Unregistration removes
// every path of the handler before notifying it with Shutdown.
package registry

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/pion/logging"
)

// Config configures a Registry.
type Config struct {
	// LoggerFactory for registry logs. Nil uses the pion default factory.
	LoggerFactory logging.LoggerFactory

	// Metrics records registration outcomes. May be nil.
	Metrics *Metrics
}

// Registry is the path-to-handler map of a node.
//
// Handlers are tracked by identity, so they must be comparable values
// (in practice, pointers). Register rejects anything else with
// ErrNotComparable.
type Registry struct {
	mu       sync.RWMutex
	paths    map[datamodel.ConcreteClusterPath]datamodel.ServerCluster
	reserved map[datamodel.ConcreteClusterPath]datamodel.ServerCluster
	owners   map[datamodel.ServerCluster][]datamodel.ConcreteClusterPath
	listener datamodel.AttributeChangeListener

	log     logging.LeveledLogger
	metrics *Metrics
}

// New creates an empty registry.
func New(config Config) *Registry {
	lf := config.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Registry{
		paths:    make(map[datamodel.ConcreteClusterPath]datamodel.ServerCluster),
		reserved: make(map[datamodel.ConcreteClusterPath]datamodel.ServerCluster),
		owners:   make(map[datamodel.ServerCluster][]datamodel.ConcreteClusterPath),
		log:      lf.NewLogger("registry"),
		metrics:  config.Metrics,
	}
}

// Register adds every path served by c.
//
// Conflicts are detected over the whole path set before anything is
// committed. If c implements datamodel.ClusterStarter, Startup runs while
// the paths are reserved but not yet visible to Lookup; the view handed
// to Startup already includes them. A Startup error releases the
// reservation and nothing is published.
func (r *Registry) Register(c datamodel.ServerCluster) error {
	if t := reflect.TypeOf(c); t == nil || !t.Comparable() {
		r.metrics.observeRegister(resultInvalid)
		return fmt.Errorf("%w: %T", ErrNotComparable, c)
	}

	paths := c.Paths()
	if len(paths) == 0 {
		r.metrics.observeRegister(resultNoPaths)
		return ErrNoPaths
	}

	r.mu.Lock()
	if err := r.checkConflictsLocked(c, paths); err != nil {
		r.mu.Unlock()
		r.metrics.observeRegister(resultDuplicate)
		return err
	}
	for _, p := range paths {
		r.reserved[p] = c
	}
	r.mu.Unlock()

	// Startup may query the registry, so it runs without the lock held.
	if starter, ok := c.(datamodel.ClusterStarter); ok {
		ctx := datamodel.ClusterContext{
			View:     &stagedView{r: r, c: c},
			Listener: datamodel.AttributeChangeFunc(r.notify),
		}
		if err := starter.Startup(ctx); err != nil {
			r.release(paths)
			r.metrics.observeRegister(resultStartupFailed)
			return fmt.Errorf("%w: %s: %w", ErrStartupFailed, paths[0], err)
		}
	}

	r.mu.Lock()
	for _, p := range paths {
		delete(r.reserved, p)
		r.paths[p] = c
	}
	r.owners[c] = paths
	n := len(r.paths)
	r.mu.Unlock()

	r.metrics.observeRegister(resultOK)
	r.metrics.setPaths(n)
	r.log.Debugf("registered %d path(s) starting at %s", len(paths), paths[0])
	return nil
}

func (r *Registry) checkConflictsLocked(c datamodel.ServerCluster, paths []datamodel.ConcreteClusterPath) error {
	if _, ok := r.owners[c]; ok {
		return &PathConflictError{Path: paths[0]}
	}
	for _, owner := range r.reserved {
		if owner == c {
			return &PathConflictError{Path: paths[0]}
		}
	}
	seen := make(map[datamodel.ConcreteClusterPath]struct{}, len(paths))
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			return &PathConflictError{Path: p}
		}
		seen[p] = struct{}{}
		if _, taken := r.paths[p]; taken {
			return &PathConflictError{Path: p}
		}
		if _, taken := r.reserved[p]; taken {
			return &PathConflictError{Path: p}
		}
	}
	return nil
}

// release drops a reservation made by Register.
func (r *Registry) release(paths []datamodel.ConcreteClusterPath) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range paths {
		delete(r.reserved, p)
	}
}

// Unregister removes every path of c and then calls c.Shutdown(reason).
// Returns ErrNotFound, without calling Shutdown, if c is not registered.
func (r *Registry) Unregister(c datamodel.ServerCluster, reason datamodel.ShutdownType) error {
	r.mu.Lock()
	paths, ok := r.owners[c]
	if !ok {
		r.mu.Unlock()
		r.metrics.observeUnregister(resultNotFound)
		return ErrNotFound
	}
	for _, p := range paths {
		delete(r.paths, p)
	}
	delete(r.owners, c)
	n := len(r.paths)
	r.mu.Unlock()

	c.Shutdown(reason)

	r.metrics.observeUnregister(resultOK)
	r.metrics.setPaths(n)
	r.log.Debugf("unregistered %d path(s) starting at %s (%s)", len(paths), paths[0], reason)
	return nil
}

// Lookup returns the handler serving path, or ErrNotFound.
func (r *Registry) Lookup(path datamodel.ConcreteClusterPath) (datamodel.ServerCluster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.paths[path]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Get is a convenience wrapper around Lookup.
func (r *Registry) Get(endpoint datamodel.EndpointID, cluster datamodel.ClusterID) (datamodel.ServerCluster, error) {
	return r.Lookup(datamodel.ConcreteClusterPath{Endpoint: endpoint, Cluster: cluster})
}

// Contains reports whether c is currently registered.
func (r *Registry) Contains(c datamodel.ServerCluster) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.owners[c]
	return ok
}

// Endpoints returns the endpoints with at least one registered cluster,
// in ascending order.
func (r *Registry) Endpoints() []datamodel.EndpointID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var eps []datamodel.EndpointID
	for p := range r.paths {
		if !slices.Contains(eps, p.Endpoint) {
			eps = append(eps, p.Endpoint)
		}
	}
	slices.Sort(eps)
	return eps
}

// ClustersOn returns the clusters registered on endpoint, in ascending order.
func (r *Registry) ClustersOn(endpoint datamodel.EndpointID) []datamodel.ClusterID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []datamodel.ClusterID
	for p := range r.paths {
		if p.Endpoint == endpoint {
			ids = append(ids, p.Cluster)
		}
	}
	slices.Sort(ids)
	return ids
}

// Paths returns every registered path, sorted by endpoint then cluster.
func (r *Registry) Paths() []datamodel.ConcreteClusterPath {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]datamodel.ConcreteClusterPath, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, func(a, b datamodel.ConcreteClusterPath) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return paths
}

// Len returns the number of registered paths.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paths)
}

// SetAttributeChangeListener sets the listener that receives attribute
// changes from every registered cluster.
func (r *Registry) SetAttributeChangeListener(listener datamodel.AttributeChangeListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = listener
}

func (r *Registry) notify(path datamodel.ConcreteAttributePath) {
	r.mu.RLock()
	listener := r.listener
	r.mu.RUnlock()

	if listener != nil {
		listener.OnAttributeChanged(path)
	}
}

// stagedView is the registry as seen by a handler during Startup: its own
// reserved paths count as registered. Once the registration is committed
// or released it reads exactly like the registry.
type stagedView struct {
	r *Registry
	c datamodel.ServerCluster
}

func (v *stagedView) Lookup(path datamodel.ConcreteClusterPath) (datamodel.ServerCluster, error) {
	v.r.mu.RLock()
	defer v.r.mu.RUnlock()

	if c, ok := v.r.paths[path]; ok {
		return c, nil
	}
	if c, ok := v.r.reserved[path]; ok && c == v.c {
		return c, nil
	}
	return nil, ErrNotFound
}

func (v *stagedView) Endpoints() []datamodel.EndpointID {
	v.r.mu.RLock()
	defer v.r.mu.RUnlock()

	var eps []datamodel.EndpointID
	for p := range v.r.paths {
		if !slices.Contains(eps, p.Endpoint) {
			eps = append(eps, p.Endpoint)
		}
	}
	for p, c := range v.r.reserved {
		if c == v.c && !slices.Contains(eps, p.Endpoint) {
			eps = append(eps, p.Endpoint)
		}
	}
	slices.Sort(eps)
	return eps
}

func (v *stagedView) ClustersOn(endpoint datamodel.EndpointID) []datamodel.ClusterID {
	v.r.mu.RLock()
	defer v.r.mu.RUnlock()

	var ids []datamodel.ClusterID
	for p := range v.r.paths {
		if p.Endpoint == endpoint {
			ids = append(ids, p.Cluster)
		}
	}
	for p, c := range v.r.reserved {
		if c == v.c && p.Endpoint == endpoint {
			ids = append(ids, p.Cluster)
		}
	}
	slices.Sort(ids)
	return ids
}

var (
	_ datamodel.ClusterView = (*Registry)(nil)
	_ datamodel.ClusterView = (*stagedView)(nil)
)

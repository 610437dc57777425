// Package lifecycle brings cluster handlers up and down in response to
// endpoint init and shutdown events.
//
// A Binding ties one cluster kind to the registry. For every endpoint it
// keeps a lazy.Holder; the init event constructs the handler and registers
// it, the shutdown event unregisters and destroys it. Both events are
// idempotent and never return errors: failures degrade only the affected
// binding and are reported through the logger and metrics.
package lifecycle

import (
	"errors"
	"slices"
	"sync"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
	"github.com/backkem/clusterhost/pkg/lazy"
	"github.com/backkem/clusterhost/pkg/registry"
	"github.com/pion/logging"
)

// BindingState is the state of a binding on one endpoint.
type BindingState uint8

const (
	// StateUninitialized means no handler exists and nothing is registered.
	StateUninitialized BindingState = iota
	// StateActive means the handler is constructed and registered.
	StateActive
)

func (s BindingState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateActive:
		return "Active"
	default:
		return "Unknown"
	}
}

// Registrar is the mutating side of a cluster registry.
type Registrar interface {
	Register(c datamodel.ServerCluster) error
	Unregister(c datamodel.ServerCluster, reason datamodel.ShutdownType) error
}

// Resolver produces construction-time feature snapshots.
type Resolver interface {
	Resolve(endpoint datamodel.EndpointID, cluster datamodel.ClusterID, attrs ...datamodel.AttributeID) featuregate.Snapshot
}

// Definition describes how to build one cluster kind.
type Definition[T datamodel.ServerCluster] struct {
	// Name labels logs and metrics, e.g. "onoff".
	Name string

	// ClusterID of the handlers this binding builds.
	ClusterID datamodel.ClusterID

	// Placement filters init events. The zero value allows every endpoint.
	Placement Placement

	// OptionalAttributes are resolved through the feature gate before
	// construction.
	OptionalAttributes []datamodel.AttributeID

	// New constructs the handler for an endpoint.
	New func(ep datamodel.EndpointID, features featuregate.Snapshot) (T, error)
}

// Deps are the collaborators shared by every binding of a node.
type Deps struct {
	Registry      Registrar
	Gate          Resolver
	LoggerFactory logging.LoggerFactory
	Metrics       *Metrics
}

// Handle is the type-erased view of a Binding used by the Manager.
type Handle interface {
	Name() string
	ClusterID() datamodel.ClusterID
	Placement() Placement
	OnEndpointInit(ep datamodel.EndpointID)
	OnEndpointShutdown(ep datamodel.EndpointID, reason datamodel.ShutdownType)
	State(ep datamodel.EndpointID) BindingState
	ActiveEndpoints() []datamodel.EndpointID
}

// Binding owns the handlers of one cluster kind, one per endpoint.
type Binding[T datamodel.ServerCluster] struct {
	def     Definition[T]
	reg     Registrar
	gate    Resolver
	log     logging.LeveledLogger
	metrics *Metrics

	mu      sync.Mutex
	holders map[datamodel.EndpointID]*lazy.Holder[T]
}

// NewBinding creates a binding. Registry, Gate and Definition.New must be set.
func NewBinding[T datamodel.ServerCluster](def Definition[T], deps Deps) *Binding[T] {
	lf := deps.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	return &Binding[T]{
		def:     def,
		reg:     deps.Registry,
		gate:    deps.Gate,
		log:     lf.NewLogger("lifecycle"),
		metrics: deps.Metrics,
		holders: make(map[datamodel.EndpointID]*lazy.Holder[T]),
	}
}

// Name implements Handle.
func (b *Binding[T]) Name() string { return b.def.Name }

// ClusterID implements Handle.
func (b *Binding[T]) ClusterID() datamodel.ClusterID { return b.def.ClusterID }

// Placement implements Handle.
func (b *Binding[T]) Placement() Placement { return b.def.Placement }

// OnEndpointInit brings the handler up on ep.
func (b *Binding[T]) OnEndpointInit(ep datamodel.EndpointID) {
	if !b.def.Placement.Allows(ep) {
		b.log.Debugf("%s: endpoint %d outside placement %s, ignoring init", b.def.Name, ep, b.def.Placement)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.holders[ep]
	if h != nil && h.IsConstructed() {
		b.log.Debugf("%s: already active on endpoint %d, ignoring init", b.def.Name, ep)
		b.metrics.observe(b.def.Name, transitionIgnored)
		return
	}

	features := b.gate.Resolve(ep, b.def.ClusterID, b.def.OptionalAttributes...)

	if h == nil {
		h = new(lazy.Holder[T])
	}
	if err := h.Create(func() (T, error) { return b.def.New(ep, features) }); err != nil {
		b.log.Errorf("%s: construct on endpoint %d failed: %v", b.def.Name, ep, err)
		b.metrics.observe(b.def.Name, transitionConstructFailed)
		return
	}

	if err := b.reg.Register(h.Instance()); err != nil {
		h.Destroy()
		b.log.Errorf("%s: register on endpoint %d failed, instance destroyed: %v", b.def.Name, ep, err)
		b.metrics.observe(b.def.Name, transitionRegisterFailed)
		return
	}

	b.holders[ep] = h
	b.log.Infof("%s: active on endpoint %d (features=0x%X)", b.def.Name, ep, features.FeatureMap())
	b.metrics.observe(b.def.Name, transitionActivated)
}

// OnEndpointShutdown tears the handler down on ep. The handler is destroyed
// even if the registry no longer knows it.
func (b *Binding[T]) OnEndpointShutdown(ep datamodel.EndpointID, reason datamodel.ShutdownType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.holders[ep]
	if h == nil || !h.IsConstructed() {
		b.log.Debugf("%s: not active on endpoint %d, ignoring shutdown", b.def.Name, ep)
		return
	}

	if err := b.reg.Unregister(h.Instance(), reason); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			b.log.Warnf("%s: endpoint %d handler was not registered, destroying anyway", b.def.Name, ep)
			b.metrics.observe(b.def.Name, transitionNotFound)
		} else {
			b.log.Errorf("%s: unregister on endpoint %d failed, destroying anyway: %v", b.def.Name, ep, err)
		}
	}

	h.Destroy()
	delete(b.holders, ep)
	b.log.Infof("%s: shut down on endpoint %d (%s)", b.def.Name, ep, reason)
	b.metrics.observe(b.def.Name, transitionDeactivated)
}

// State reports the binding state on ep.
func (b *Binding[T]) State(ep datamodel.EndpointID) BindingState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h := b.holders[ep]; h != nil && h.IsConstructed() {
		return StateActive
	}
	return StateUninitialized
}

// Instance returns the active handler on ep.
func (b *Binding[T]) Instance(ep datamodel.EndpointID) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.holders[ep]
	if h == nil {
		var zero T
		return zero, false
	}
	return h.Get()
}

// ActiveEndpoints returns the endpoints the binding is active on, ascending.
func (b *Binding[T]) ActiveEndpoints() []datamodel.EndpointID {
	b.mu.Lock()
	defer b.mu.Unlock()

	eps := make([]datamodel.EndpointID, 0, len(b.holders))
	for ep, h := range b.holders {
		if h.IsConstructed() {
			eps = append(eps, ep)
		}
	}
	slices.Sort(eps)
	return eps
}

package generaldiagnostics

import (
	"fmt"
	"sync"
	"time"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
)

// BootTracker is a Provider backed by an attribute store. Each tracker
// counts as one boot: NewBootTracker increments the persisted RebootCount.
type BootTracker struct {
	store  config.AttributeStore
	ep     datamodel.EndpointID
	now    func() time.Time
	reason BootReason

	mu        sync.Mutex
	bootedAt  time.Time
	reboots   uint16
	baseHours uint32
}

// BootTrackerOption configures a BootTracker.
type BootTrackerOption func(*BootTracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BootTrackerOption {
	return func(b *BootTracker) { b.now = now }
}

// WithBootReason sets the reported boot reason.
func WithBootReason(r BootReason) BootTrackerOption {
	return func(b *BootTracker) { b.reason = r }
}

// NewBootTracker loads the counters stored for endpoint ep, records a boot
// and persists the new reboot count.
func NewBootTracker(store config.AttributeStore, ep datamodel.EndpointID, opts ...BootTrackerOption) (*BootTracker, error) {
	b := &BootTracker{
		store:  store,
		ep:     ep,
		now:    time.Now,
		reason: BootReasonPowerOnReboot,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.bootedAt = b.now()

	reboots, err := b.load(AttrRebootCount)
	if err != nil {
		return nil, err
	}
	hours, err := b.load(AttrTotalOperationalHours)
	if err != nil {
		return nil, err
	}

	if reboots < 0xFFFF {
		reboots++
	}
	b.reboots = uint16(reboots)
	b.baseHours = uint32(hours)

	if err := b.save(AttrRebootCount, uint64(b.reboots)); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BootTracker) path(attr datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: b.ep, Cluster: ClusterID, Attribute: attr}
}

func (b *BootTracker) load(attr datamodel.AttributeID) (uint64, error) {
	if b.store == nil {
		return 0, nil
	}
	v, ok, err := b.store.ReadAttribute(b.path(attr))
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", attr, err)
	}
	if !ok {
		return 0, nil
	}
	u, err := v.AsUint()
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", attr, err)
	}
	return u, nil
}

func (b *BootTracker) save(attr datamodel.AttributeID, v uint64) error {
	if b.store == nil {
		return nil
	}
	return b.store.WriteAttribute(b.path(attr), datamodel.UintValue(v))
}

// RebootCount implements Provider.
func (b *BootTracker) RebootCount() (uint16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reboots, nil
}

// UpTime implements Provider.
func (b *BootTracker) UpTime() (uint64, error) {
	return uint64(b.uptime() / time.Second), nil
}

// TotalOperationalHours implements Provider.
func (b *BootTracker) TotalOperationalHours() (uint32, error) {
	b.mu.Lock()
	base := b.baseHours
	b.mu.Unlock()
	return base + uint32(b.uptime()/time.Hour), nil
}

// BootReason implements Provider.
func (b *BootTracker) BootReason() (BootReason, error) {
	return b.reason, nil
}

// Checkpoint persists the operational hours accumulated so far.
func (b *BootTracker) Checkpoint() error {
	hours, _ := b.TotalOperationalHours()
	return b.save(AttrTotalOperationalHours, uint64(hours))
}

func (b *BootTracker) uptime() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Sub(b.bootedAt)
}

var _ Provider = (*BootTracker)(nil)

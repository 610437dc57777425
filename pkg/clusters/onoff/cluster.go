// Package onoff implements the On/Off Cluster (0x0006).
//
// The On/Off cluster provides attributes to control an on/off state, such
// as a light switch or power outlet.
package onoff

import (
	"context"
	"sync"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
	"github.com/pion/logging"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0006
	ClusterRevision uint16              = 6
)

// Attribute IDs.
const (
	AttrOnOff              datamodel.AttributeID = 0x0000
	AttrGlobalSceneControl datamodel.AttributeID = 0x4000
	AttrOnTime             datamodel.AttributeID = 0x4001
	AttrOffWaitTime        datamodel.AttributeID = 0x4002
	AttrStartUpOnOff       datamodel.AttributeID = 0x4003
)

// Feature bits.
type Feature uint32

const (
	// FeatureLighting indicates support for lighting applications.
	// Enables GlobalSceneControl, OnTime, OffWaitTime, StartUpOnOff attributes.
	FeatureLighting Feature = 1 << 0 // LT

	// FeatureDeadFrontBehavior indicates dead front behavior support.
	FeatureDeadFrontBehavior Feature = 1 << 1 // DF

	// FeatureOffOnly indicates the device can only be turned off, not on.
	FeatureOffOnly Feature = 1 << 2 // OFFONLY
)

// StartUpOnOff indicates the startup behavior.
type StartUpOnOff uint8

const (
	// StartUpOnOffOff sets OnOff to false on startup.
	StartUpOnOffOff StartUpOnOff = 0

	// StartUpOnOffOn sets OnOff to true on startup.
	StartUpOnOffOn StartUpOnOff = 1

	// StartUpOnOffToggle toggles the previous value on startup.
	StartUpOnOffToggle StartUpOnOff = 2

	// StartUpOnOffPrevious restores the previous value on startup.
	StartUpOnOffPrevious StartUpOnOff = 0xFF
)

// String returns the name of the startup behavior.
func (s StartUpOnOff) String() string {
	switch s {
	case StartUpOnOffOff:
		return "Off"
	case StartUpOnOffOn:
		return "On"
	case StartUpOnOffToggle:
		return "Toggle"
	case StartUpOnOffPrevious:
		return "Previous"
	default:
		return "Unknown"
	}
}

// StateChangeCallback is called when the on/off state changes.
type StateChangeCallback func(endpoint datamodel.EndpointID, newState bool)

// Config provides dependencies for the On/Off cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// Features carries the resolved feature map.
	Features featuregate.Snapshot

	// Storage for persisting state (optional).
	// If nil, state is not persisted.
	Storage config.AttributeStore

	// OnStateChange callback when state changes (optional).
	OnStateChange StateChangeCallback

	// InitialOnOff is the initial on/off state if no persisted value exists.
	InitialOnOff bool

	// LoggerFactory for storage warnings (optional).
	LoggerFactory logging.LoggerFactory
}

// Cluster implements the On/Off cluster (0x0006).
type Cluster struct {
	*datamodel.ClusterBase
	config   Config
	features Feature
	log      logging.LeveledLogger

	// Mutable state (protected by mutex)
	mu    sync.RWMutex
	onOff bool

	// Lighting feature attributes (LT)
	globalSceneControl bool
	onTime             uint16
	offWaitTime        uint16
	startUpOnOff       *StartUpOnOff // nullable

	// Cached attribute list
	attrList []datamodel.AttributeEntry
}

// New creates a new On/Off cluster.
func New(cfg Config) *Cluster {
	lf := cfg.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	c := &Cluster{
		log:                lf.NewLogger("onoff"),
		ClusterBase:        datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:             cfg,
		features:           Feature(cfg.Features.FeatureMap()),
		onOff:              cfg.InitialOnOff,
		globalSceneControl: true,
	}

	// Set feature map
	c.ClusterBase.SetFeatureMap(uint32(c.features))

	// Load persisted state if storage available
	if cfg.Storage != nil {
		c.loadPersistedState()
	}
	c.applyStartUpOnOff()

	// Build attribute list
	c.attrList = c.buildAttributeList()

	return c
}

func (c *Cluster) hasLighting() bool {
	return c.features&FeatureLighting != 0
}

func (c *Cluster) attrPath(attr datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: c.EndpointID(), Cluster: ClusterID, Attribute: attr}
}

// loadPersistedState loads state from storage.
func (c *Cluster) loadPersistedState() {
	if v, ok, err := c.config.Storage.ReadAttribute(c.attrPath(AttrOnOff)); err == nil && ok {
		if b, err := v.AsBool(); err == nil {
			c.onOff = b
		}
	}

	// Load StartUpOnOff if lighting feature enabled
	if c.hasLighting() {
		if v, ok, err := c.config.Storage.ReadAttribute(c.attrPath(AttrStartUpOnOff)); err == nil && ok && !v.IsNull() {
			if u, err := v.AsUint(); err == nil && validStartUpOnOff(u) {
				s := StartUpOnOff(u)
				c.startUpOnOff = &s
			}
		}
	}
}

// applyStartUpOnOff sets the initial state per the StartUpOnOff attribute.
func (c *Cluster) applyStartUpOnOff() {
	if !c.hasLighting() || c.startUpOnOff == nil {
		return
	}
	switch *c.startUpOnOff {
	case StartUpOnOffOff:
		c.onOff = false
	case StartUpOnOffOn:
		c.onOff = true
	case StartUpOnOffToggle:
		c.onOff = !c.onOff
	}
}

func validStartUpOnOff(v uint64) bool {
	return v <= 2 || v == 0xFF
}

// saveOnOff persists the on/off state.
func (c *Cluster) saveOnOff(on bool) {
	if c.config.Storage == nil {
		return
	}
	if err := c.config.Storage.WriteAttribute(c.attrPath(AttrOnOff), datamodel.BoolValue(on)); err != nil {
		c.log.Warnf("endpoint %d: failed to persist OnOff: %v", c.config.EndpointID, err)
	}
}

// buildAttributeList constructs the list of supported attributes.
func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	viewPriv := datamodel.PrivilegeView
	managePriv := datamodel.PrivilegeManage

	attrs := []datamodel.AttributeEntry{
		// Mandatory attribute
		datamodel.NewReadOnlyAttribute(AttrOnOff, 0, viewPriv),
	}

	// Lighting feature attributes
	if c.hasLighting() {
		attrs = append(attrs,
			datamodel.NewReadOnlyAttribute(AttrGlobalSceneControl, 0, viewPriv),
			datamodel.NewReadWriteAttribute(AttrOnTime, 0, viewPriv, managePriv),
			datamodel.NewReadWriteAttribute(AttrOffWaitTime, 0, viewPriv, managePriv),
			datamodel.NewReadWriteAttribute(AttrStartUpOnOff, datamodel.AttrQualityNullable|datamodel.AttrQualityNonVolatile, viewPriv, managePriv),
		)
	}

	// Add global attributes
	return datamodel.MergeAttributeLists(attrs)
}

// AttributeList implements datamodel.ServerCluster.
func (c *Cluster) AttributeList(datamodel.ConcreteClusterPath) []datamodel.AttributeEntry {
	return c.attrList
}

// ReadAttribute implements datamodel.ServerCluster.
func (c *Cluster) ReadAttribute(ctx context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	// Handle global attributes first
	if v, ok := c.ReadGlobalAttribute(path.Attribute, c.attrList); ok {
		return v, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if path.Attribute == AttrOnOff {
		return datamodel.BoolValue(c.onOff), nil
	}
	if !c.hasLighting() {
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}

	switch path.Attribute {
	case AttrGlobalSceneControl:
		return datamodel.BoolValue(c.globalSceneControl), nil
	case AttrOnTime:
		return datamodel.UintValue(uint64(c.onTime)), nil
	case AttrOffWaitTime:
		return datamodel.UintValue(uint64(c.offWaitTime)), nil
	case AttrStartUpOnOff:
		if c.startUpOnOff == nil {
			return datamodel.NullValue(), nil
		}
		return datamodel.UintValue(uint64(*c.startUpOnOff)), nil
	default:
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}
}

// SetStartUpOnOff writes the StartUpOnOff attribute. nil clears it.
func (c *Cluster) SetStartUpOnOff(s *StartUpOnOff) error {
	if !c.hasLighting() {
		return datamodel.ErrUnsupportedWrite
	}
	if s != nil && !validStartUpOnOff(uint64(*s)) {
		return datamodel.ErrConstraintError
	}

	if c.config.Storage != nil {
		v := datamodel.NullValue()
		if s != nil {
			v = datamodel.UintValue(uint64(*s))
		}
		if err := c.config.Storage.WriteAttribute(c.attrPath(AttrStartUpOnOff), v); err != nil {
			return err
		}
	}

	c.mu.Lock()
	if s == nil {
		c.startUpOnOff = nil
	} else {
		v := *s
		c.startUpOnOff = &v
	}
	c.mu.Unlock()

	c.NotifyAttributeChanged(c.attrPath(AttrStartUpOnOff))
	return nil
}

// Shutdown implements datamodel.ServerCluster. A graceful shutdown
// persists the current state; removal deletes it.
func (c *Cluster) Shutdown(reason datamodel.ShutdownType) {
	if c.config.Storage != nil {
		switch reason {
		case datamodel.ShutdownRemoved:
			if err := c.config.Storage.DeleteAttribute(c.attrPath(AttrOnOff)); err != nil {
				c.log.Warnf("endpoint %d: failed to delete persisted OnOff: %v", c.config.EndpointID, err)
			}
		default:
			c.saveOnOff(c.OnOff())
		}
	}
	c.ClusterBase.Shutdown(reason)
}

var _ datamodel.ServerCluster = (*Cluster)(nil)

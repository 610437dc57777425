package matter

import (
	"fmt"
	"slices"

	"github.com/backkem/clusterhost/pkg/clusters/generalcommissioning"
	"github.com/backkem/clusterhost/pkg/clusters/generaldiagnostics"
	"github.com/backkem/clusterhost/pkg/clusters/onoff"
	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// NodeConfig holds all configuration for a Node.
type NodeConfig struct {
	// Device is the endpoint composition and identity. Required.
	Device *config.DeviceConfig

	// StatePath is the CBOR state file for persisted attributes and node
	// counters. Empty keeps state in memory only.
	StatePath string

	// LoggerFactory for every component. Nil uses the pion default.
	LoggerFactory logging.LoggerFactory

	// MetricsRegisterer receives the registry and lifecycle collectors.
	// Nil leaves them unregistered.
	MetricsRegisterer prometheus.Registerer

	// Diagnostics backs the General Diagnostics cluster. Nil uses a
	// BootTracker over the node's store.
	Diagnostics generaldiagnostics.Provider

	// Commissioning parameters - Optional
	LocationCapability     generalcommissioning.RegulatoryLocationType
	BasicCommissioningInfo generalcommissioning.BasicCommissioningInfo
	TermsAndConditions     generalcommissioning.TermsAndConditions

	// Callbacks - Optional
	OnStateChanged func(state NodeState)
	OnOffChanged   onoff.StateChangeCallback
}

// Validate checks the configuration for errors.
func (c *NodeConfig) Validate() error {
	if c.Device == nil {
		return ErrDeviceRequired
	}

	if c.Device.Node.VendorID == 0 {
		return ErrInvalidVendorID
	}

	if c.Device.Node.ProductID == 0 {
		return ErrInvalidProductID
	}

	if err := c.Device.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.LocationCapability > generalcommissioning.RegulatoryIndoorOutdoor {
		return fmt.Errorf("%w: location capability %d", ErrInvalidConfig, c.LocationCapability)
	}

	return nil
}

// applyDefaults fills in default values for unset fields. The device
// configuration is copied so the caller's value is never modified.
func (c *NodeConfig) applyDefaults() {
	device := *c.Device
	device.Endpoints = slices.Clone(device.Endpoints)

	// The root endpoint always exists and always carries the node-wide
	// clusters.
	idx := slices.IndexFunc(device.Endpoints, func(ep config.EndpointConfig) bool {
		return ep.ID == uint16(datamodel.RootEndpointID)
	})
	if idx < 0 {
		device.Endpoints = append([]config.EndpointConfig{{ID: uint16(datamodel.RootEndpointID)}}, device.Endpoints...)
		idx = 0
	}
	device.Endpoints[idx] = withRootDefaults(device.Endpoints[idx], device.Node)
	c.Device = &device

	if c.BasicCommissioningInfo.FailSafeExpiryLengthSeconds == 0 {
		c.BasicCommissioningInfo.FailSafeExpiryLengthSeconds = 60
	}
	if c.BasicCommissioningInfo.MaxCumulativeFailsafeSeconds == 0 {
		c.BasicCommissioningInfo.MaxCumulativeFailsafeSeconds = 900
	}

	if c.LoggerFactory == nil {
		c.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
}

// Package generalcommissioning implements the General Commissioning Cluster (0x0030).
//
// The General Commissioning cluster exposes the commissioning parameters of a
// node: breadcrumb, fail-safe timing, regulatory configuration and, with the
// TC feature, terms and conditions acceptance.
//
// This cluster is mandatory on the root endpoint (endpoint 0).
package generalcommissioning

import (
	"context"
	"sync"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0030
	ClusterRevision uint16              = 3
)

// Attribute IDs.
const (
	AttrBreadcrumb                   datamodel.AttributeID = 0x0000
	AttrBasicCommissioningInfo       datamodel.AttributeID = 0x0001
	AttrRegulatoryConfig             datamodel.AttributeID = 0x0002
	AttrLocationCapability           datamodel.AttributeID = 0x0003
	AttrSupportsConcurrentConnection datamodel.AttributeID = 0x0004
	// TC feature attributes
	AttrTCAcceptedVersion          datamodel.AttributeID = 0x0005
	AttrTCMinRequiredVersion       datamodel.AttributeID = 0x0006
	AttrTCAcknowledgements         datamodel.AttributeID = 0x0007
	AttrTCAcknowledgementsRequired datamodel.AttributeID = 0x0008
)

// Feature bits.
type Feature uint32

const (
	// FeatureTermsAndConditions indicates T&C support.
	FeatureTermsAndConditions Feature = 1 << 0 // TC
)

// RegulatoryLocationType indicates the regulatory location type.
type RegulatoryLocationType uint8

const (
	RegulatoryIndoor        RegulatoryLocationType = 0
	RegulatoryOutdoor       RegulatoryLocationType = 1
	RegulatoryIndoorOutdoor RegulatoryLocationType = 2
)

// String returns the name of the regulatory location type.
func (r RegulatoryLocationType) String() string {
	switch r {
	case RegulatoryIndoor:
		return "Indoor"
	case RegulatoryOutdoor:
		return "Outdoor"
	case RegulatoryIndoorOutdoor:
		return "IndoorOutdoor"
	default:
		return "Unknown"
	}
}

// CommissioningErrorCode is the outcome of a commissioning step.
type CommissioningErrorCode uint8

const (
	CommissioningOK                            CommissioningErrorCode = 0
	CommissioningValueOutsideRange             CommissioningErrorCode = 1
	CommissioningRequiredTCNotAccepted         CommissioningErrorCode = 5
	CommissioningTCAcknowledgementsNotReceived CommissioningErrorCode = 6
	CommissioningTCMinVersionNotMet            CommissioningErrorCode = 7
)

// String returns the name of the commissioning error code.
func (c CommissioningErrorCode) String() string {
	switch c {
	case CommissioningOK:
		return "OK"
	case CommissioningValueOutsideRange:
		return "ValueOutsideRange"
	case CommissioningRequiredTCNotAccepted:
		return "RequiredTCNotAccepted"
	case CommissioningTCAcknowledgementsNotReceived:
		return "TCAcknowledgementsNotReceived"
	case CommissioningTCMinVersionNotMet:
		return "TCMinVersionNotMet"
	default:
		return "Unknown"
	}
}

// BasicCommissioningInfo provides constant values for commissioning.
type BasicCommissioningInfo struct {
	// FailSafeExpiryLengthSeconds is the initial fail-safe duration.
	FailSafeExpiryLengthSeconds uint16

	// MaxCumulativeFailsafeSeconds is the maximum total fail-safe duration.
	MaxCumulativeFailsafeSeconds uint16
}

// TermsAndConditions describes the terms a commissioner must accept.
type TermsAndConditions struct {
	// MinRequiredVersion is the lowest acceptable version.
	MinRequiredVersion uint16

	// RequiredAcknowledgements is the bitmap every acceptance must cover.
	RequiredAcknowledgements uint16
}

// Config provides dependencies for the General Commissioning cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to (should be 0).
	EndpointID datamodel.EndpointID

	// Features carries the resolved feature map.
	Features featuregate.Snapshot

	// BasicCommissioningInfo provides commissioning timing parameters.
	BasicCommissioningInfo BasicCommissioningInfo

	// LocationCapability indicates the regulatory location capability.
	LocationCapability RegulatoryLocationType

	// SupportsConcurrentConnection indicates concurrent connection support.
	SupportsConcurrentConnection bool

	// TermsAndConditions is used when the TC feature is enabled.
	TermsAndConditions TermsAndConditions

	// Storage persists RegulatoryConfig and TC acceptance (optional).
	Storage config.AttributeStore
}

// Cluster implements the General Commissioning cluster (0x0030).
type Cluster struct {
	*datamodel.ClusterBase
	config   Config
	features Feature

	// Mutable state (protected by mutex)
	mu               sync.RWMutex
	breadcrumb       uint64
	regulatoryConfig RegulatoryLocationType
	tcAccepted       uint16
	tcAcks           uint16

	// Cached attribute list (built on construction)
	attrList []datamodel.AttributeEntry
}

// New creates a new General Commissioning cluster.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase:      datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:           cfg,
		features:         Feature(cfg.Features.FeatureMap()) & FeatureTermsAndConditions,
		regulatoryConfig: cfg.LocationCapability, // Default to capability
	}
	c.SetFeatureMap(uint32(c.features))

	if cfg.Storage != nil {
		c.loadPersistedState()
	}

	c.attrList = c.buildAttributeList()
	return c
}

func (c *Cluster) hasTC() bool {
	return c.features&FeatureTermsAndConditions != 0
}

func (c *Cluster) attrPath(attr datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: c.EndpointID(), Cluster: ClusterID, Attribute: attr}
}

func (c *Cluster) loadUint(attr datamodel.AttributeID) (uint64, bool) {
	v, ok, err := c.config.Storage.ReadAttribute(c.attrPath(attr))
	if err != nil || !ok {
		return 0, false
	}
	u, err := v.AsUint()
	return u, err == nil
}

// loadPersistedState restores RegulatoryConfig and TC acceptance.
func (c *Cluster) loadPersistedState() {
	if u, ok := c.loadUint(AttrRegulatoryConfig); ok && c.allowedLocation(RegulatoryLocationType(u)) {
		c.regulatoryConfig = RegulatoryLocationType(u)
	}
	if !c.hasTC() {
		return
	}
	if u, ok := c.loadUint(AttrTCAcceptedVersion); ok && u <= 0xFFFF {
		c.tcAccepted = uint16(u)
	}
	if u, ok := c.loadUint(AttrTCAcknowledgements); ok && u <= 0xFFFF {
		c.tcAcks = uint16(u)
	}
}

// buildAttributeList constructs the list of supported attributes.
func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	viewPriv := datamodel.PrivilegeView
	adminPriv := datamodel.PrivilegeAdminister

	attrs := []datamodel.AttributeEntry{
		// Mandatory attributes
		datamodel.NewReadWriteAttribute(AttrBreadcrumb, 0, viewPriv, adminPriv),
		datamodel.NewReadOnlyAttribute(AttrBasicCommissioningInfo, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrRegulatoryConfig, 0, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrLocationCapability, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrSupportsConcurrentConnection, datamodel.AttrQualityFixed, viewPriv),
	}

	if c.hasTC() {
		attrs = append(attrs,
			datamodel.NewReadOnlyAttribute(AttrTCAcceptedVersion, datamodel.AttrQualityNonVolatile, adminPriv),
			datamodel.NewReadOnlyAttribute(AttrTCMinRequiredVersion, 0, adminPriv),
			datamodel.NewReadOnlyAttribute(AttrTCAcknowledgements, datamodel.AttrQualityNonVolatile, adminPriv),
			datamodel.NewReadOnlyAttribute(AttrTCAcknowledgementsRequired, 0, adminPriv),
		)
	}

	return datamodel.MergeAttributeLists(attrs)
}

// AttributeList implements datamodel.ServerCluster.
func (c *Cluster) AttributeList(datamodel.ConcreteClusterPath) []datamodel.AttributeEntry {
	return c.attrList
}

// ReadAttribute implements datamodel.ServerCluster.
func (c *Cluster) ReadAttribute(ctx context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	if v, ok := c.ReadGlobalAttribute(path.Attribute, c.attrList); ok {
		return v, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch path.Attribute {
	case AttrBreadcrumb:
		return datamodel.UintValue(c.breadcrumb), nil
	case AttrBasicCommissioningInfo:
		// [FailSafeExpiryLengthSeconds, MaxCumulativeFailsafeSeconds]
		return datamodel.ListValue(
			datamodel.UintValue(uint64(c.config.BasicCommissioningInfo.FailSafeExpiryLengthSeconds)),
			datamodel.UintValue(uint64(c.config.BasicCommissioningInfo.MaxCumulativeFailsafeSeconds)),
		), nil
	case AttrRegulatoryConfig:
		return datamodel.UintValue(uint64(c.regulatoryConfig)), nil
	case AttrLocationCapability:
		return datamodel.UintValue(uint64(c.config.LocationCapability)), nil
	case AttrSupportsConcurrentConnection:
		return datamodel.BoolValue(c.config.SupportsConcurrentConnection), nil
	}

	if !c.hasTC() {
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}

	switch path.Attribute {
	case AttrTCAcceptedVersion:
		return datamodel.UintValue(uint64(c.tcAccepted)), nil
	case AttrTCMinRequiredVersion:
		return datamodel.UintValue(uint64(c.config.TermsAndConditions.MinRequiredVersion)), nil
	case AttrTCAcknowledgements:
		return datamodel.UintValue(uint64(c.tcAcks)), nil
	case AttrTCAcknowledgementsRequired:
		return datamodel.BoolValue(!c.tcSatisfiedLocked()), nil
	default:
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}
}

var _ datamodel.ServerCluster = (*Cluster)(nil)

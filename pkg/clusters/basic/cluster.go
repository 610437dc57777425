// Package basic implements the Basic Information Cluster (0x0028).
//
// The Basic Information cluster provides attributes for determining
// basic information about Nodes, such as Vendor ID, Product ID, serial number,
// and other characteristics that apply to the whole Node.
//
// This cluster is mandatory on the root endpoint (endpoint 0).
package basic

import (
	"context"
	"errors"
	"sync"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0028
	ClusterRevision uint16              = 5
)

// Attribute IDs.
const (
	AttrDataModelRevision    datamodel.AttributeID = 0x0000
	AttrVendorName           datamodel.AttributeID = 0x0001
	AttrVendorID             datamodel.AttributeID = 0x0002
	AttrProductName          datamodel.AttributeID = 0x0003
	AttrProductID            datamodel.AttributeID = 0x0004
	AttrNodeLabel            datamodel.AttributeID = 0x0005
	AttrLocation             datamodel.AttributeID = 0x0006
	AttrHardwareVersion      datamodel.AttributeID = 0x0007
	AttrHardwareVersionStr   datamodel.AttributeID = 0x0008
	AttrSoftwareVersion      datamodel.AttributeID = 0x0009
	AttrSoftwareVersionStr   datamodel.AttributeID = 0x000A
	AttrManufacturingDate    datamodel.AttributeID = 0x000B
	AttrPartNumber           datamodel.AttributeID = 0x000C
	AttrProductURL           datamodel.AttributeID = 0x000D
	AttrProductLabel         datamodel.AttributeID = 0x000E
	AttrSerialNumber         datamodel.AttributeID = 0x000F
	AttrLocalConfigDisabled  datamodel.AttributeID = 0x0010
	AttrReachable            datamodel.AttributeID = 0x0011
	AttrUniqueID             datamodel.AttributeID = 0x0012
	AttrSpecificationVersion datamodel.AttributeID = 0x0015
	AttrMaxPathsPerInvoke    datamodel.AttributeID = 0x0016
)

// OptionalAttributes are exposed only when enabled in the node configuration.
var OptionalAttributes = []datamodel.AttributeID{
	AttrManufacturingDate,
	AttrPartNumber,
	AttrProductURL,
	AttrProductLabel,
	AttrSerialNumber,
	AttrLocalConfigDisabled,
	AttrReachable,
	AttrUniqueID,
}

// ErrInvalidDeviceInfo is returned by New when the vendor or product ID is
// missing.
var ErrInvalidDeviceInfo = errors.New("basic: vendor ID and product ID are required")

const (
	maxNodeLabelLen      = 32
	defaultLocation      = "XX"
	dataModelRevision    = 17
	specificationVersion = 0x01040000
	maxPathsPerInvoke    = 1
)

// DeviceInfo provides static device information.
// These values are typically set at manufacturing time and don't change.
type DeviceInfo struct {
	// Mandatory attributes
	VendorName            string // max 32 chars
	VendorID              uint16
	ProductName           string // max 32 chars
	ProductID             uint16
	HardwareVersion       uint16
	HardwareVersionString string
	SoftwareVersion       uint32
	SoftwareVersionString string

	// NodeLabel is the default label when none has been persisted.
	NodeLabel string

	// Optional attributes, served only when enabled.
	ManufacturingDate string
	PartNumber        string
	ProductURL        string
	ProductLabel      string
	SerialNumber      string
	UniqueID          string
}

// Config provides dependencies for the Basic Information cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to (should be 0).
	EndpointID datamodel.EndpointID

	// DeviceInfo provides static device information.
	DeviceInfo DeviceInfo

	// Features selects the optional attributes to expose.
	Features featuregate.Snapshot

	// Storage for persisting mutable attributes.
	// If nil, mutable attributes are stored in memory only.
	Storage config.AttributeStore
}

// Cluster implements the Basic Information cluster (0x0028).
type Cluster struct {
	*datamodel.ClusterBase
	config Config

	// Mutable state (protected by mutex)
	mu                  sync.RWMutex
	nodeLabel           string
	location            string
	localConfigDisabled bool
	reachable           bool

	// Cached attribute list (built on construction)
	attrList []datamodel.AttributeEntry
}

// New creates a new Basic Information cluster.
func New(cfg Config) (*Cluster, error) {
	if cfg.DeviceInfo.VendorID == 0 || cfg.DeviceInfo.ProductID == 0 {
		return nil, ErrInvalidDeviceInfo
	}

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
		nodeLabel:   cfg.DeviceInfo.NodeLabel,
		location:    defaultLocation,
		reachable:   true,
	}

	c.loadPersistedState()
	c.attrList = c.buildAttributeList()

	return c, nil
}

// loadPersistedState loads mutable attributes from storage.
func (c *Cluster) loadPersistedState() {
	if c.config.Storage == nil {
		return
	}

	if s, ok := c.loadString(AttrNodeLabel); ok {
		c.nodeLabel = s
	}
	if s, ok := c.loadString(AttrLocation); ok && len(s) == 2 {
		c.location = s
	}
	if v, ok, err := c.config.Storage.ReadAttribute(c.attrPath(AttrLocalConfigDisabled)); err == nil && ok {
		if b, err := v.AsBool(); err == nil {
			c.localConfigDisabled = b
		}
	}
}

func (c *Cluster) loadString(attr datamodel.AttributeID) (string, bool) {
	v, ok, err := c.config.Storage.ReadAttribute(c.attrPath(attr))
	if err != nil || !ok {
		return "", false
	}
	s, err := v.AsString()
	if err != nil {
		return "", false
	}
	return s, true
}

func (c *Cluster) attrPath(attr datamodel.AttributeID) datamodel.ConcreteAttributePath {
	return datamodel.ConcreteAttributePath{Endpoint: c.EndpointID(), Cluster: ClusterID, Attribute: attr}
}

// buildAttributeList constructs the list of supported attributes.
func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	viewPriv := datamodel.PrivilegeView
	managePriv := datamodel.PrivilegeManage
	adminPriv := datamodel.PrivilegeAdminister

	attrs := []datamodel.AttributeEntry{
		// Mandatory fixed attributes
		datamodel.NewReadOnlyAttribute(AttrDataModelRevision, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrVendorName, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrVendorID, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrProductName, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrProductID, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrHardwareVersion, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrHardwareVersionStr, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrSoftwareVersion, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrSoftwareVersionStr, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrSpecificationVersion, datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrMaxPathsPerInvoke, datamodel.AttrQualityFixed, viewPriv),

		// Mandatory writable attributes
		datamodel.NewReadWriteAttribute(AttrNodeLabel, datamodel.AttrQualityNonVolatile, viewPriv, managePriv),
		datamodel.NewReadWriteAttribute(AttrLocation, datamodel.AttrQualityNonVolatile, viewPriv, adminPriv),
	}

	f := c.config.Features
	for _, id := range []datamodel.AttributeID{
		AttrManufacturingDate, AttrPartNumber, AttrProductURL,
		AttrProductLabel, AttrSerialNumber, AttrUniqueID,
	} {
		if f.Has(id) {
			attrs = append(attrs, datamodel.NewReadOnlyAttribute(id, datamodel.AttrQualityFixed, viewPriv))
		}
	}
	if f.Has(AttrLocalConfigDisabled) {
		attrs = append(attrs, datamodel.NewReadWriteAttribute(AttrLocalConfigDisabled, datamodel.AttrQualityNonVolatile, viewPriv, managePriv))
	}
	if f.Has(AttrReachable) {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrReachable, 0, viewPriv))
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

	info := c.config.DeviceInfo
	switch path.Attribute {
	case AttrDataModelRevision:
		return datamodel.UintValue(dataModelRevision), nil
	case AttrVendorName:
		return datamodel.StringValue(info.VendorName), nil
	case AttrVendorID:
		return datamodel.UintValue(uint64(info.VendorID)), nil
	case AttrProductName:
		return datamodel.StringValue(info.ProductName), nil
	case AttrProductID:
		return datamodel.UintValue(uint64(info.ProductID)), nil
	case AttrHardwareVersion:
		return datamodel.UintValue(uint64(info.HardwareVersion)), nil
	case AttrHardwareVersionStr:
		return datamodel.StringValue(info.HardwareVersionString), nil
	case AttrSoftwareVersion:
		return datamodel.UintValue(uint64(info.SoftwareVersion)), nil
	case AttrSoftwareVersionStr:
		return datamodel.StringValue(info.SoftwareVersionString), nil
	case AttrSpecificationVersion:
		return datamodel.UintValue(specificationVersion), nil
	case AttrMaxPathsPerInvoke:
		return datamodel.UintValue(maxPathsPerInvoke), nil
	case AttrNodeLabel:
		return datamodel.StringValue(c.NodeLabel()), nil
	case AttrLocation:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return datamodel.StringValue(c.location), nil
	}

	if !c.config.Features.Has(path.Attribute) {
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}

	switch path.Attribute {
	case AttrManufacturingDate:
		return datamodel.StringValue(info.ManufacturingDate), nil
	case AttrPartNumber:
		return datamodel.StringValue(info.PartNumber), nil
	case AttrProductURL:
		return datamodel.StringValue(info.ProductURL), nil
	case AttrProductLabel:
		return datamodel.StringValue(info.ProductLabel), nil
	case AttrSerialNumber:
		return datamodel.StringValue(info.SerialNumber), nil
	case AttrUniqueID:
		return datamodel.StringValue(info.UniqueID), nil
	case AttrLocalConfigDisabled:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return datamodel.BoolValue(c.localConfigDisabled), nil
	case AttrReachable:
		c.mu.RLock()
		defer c.mu.RUnlock()
		return datamodel.BoolValue(c.reachable), nil
	default:
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}
}

// NodeLabel returns the current node label.
func (c *Cluster) NodeLabel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodeLabel
}

var _ datamodel.ServerCluster = (*Cluster)(nil)

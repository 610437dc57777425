// Package descriptor implements the Descriptor Cluster (0x001D).
//
// The Descriptor cluster describes an endpoint's device types, server/client
// clusters, and composition (PartsList). It's mandatory on all endpoints.
//
// ServerList is not configured: the cluster captures the registry view when
// it starts and derives the list from whatever is registered on its endpoint
// at read time.
package descriptor

import (
	"context"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x001D
	ClusterRevision uint16              = 3
)

// Attribute IDs.
const (
	AttrDeviceTypeList   datamodel.AttributeID = 0x0000
	AttrServerList       datamodel.AttributeID = 0x0001
	AttrClientList       datamodel.AttributeID = 0x0002
	AttrPartsList        datamodel.AttributeID = 0x0003
	AttrTagList          datamodel.AttributeID = 0x0004
	AttrEndpointUniqueID datamodel.AttributeID = 0x0005
)

// Feature bits.
type Feature uint32

const (
	// FeatureTagList indicates the TagList attribute is present.
	FeatureTagList Feature = 1 << 0 // TAGLIST
)

// SemanticTag represents a semantic tag for endpoint disambiguation.
type SemanticTag struct {
	// MfgCode is the manufacturer code (nil for standard tags).
	MfgCode *uint16

	NamespaceID uint8
	Tag         uint8

	// Label is an optional human-readable label.
	Label *string
}

// Config provides dependencies for the Descriptor cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID datamodel.EndpointID

	// Features carries the resolved feature map and optional attributes.
	Features featuregate.Snapshot

	// DeviceTypes is the endpoint's device type list.
	DeviceTypes []datamodel.DeviceTypeEntry

	// Parts lists the endpoints composed under this one. Ignored on the
	// root endpoint, whose PartsList is every other live endpoint.
	Parts []datamodel.EndpointID

	// SemanticTags is served as TagList when FeatureTagList is set.
	SemanticTags []SemanticTag

	// EndpointUniqueID is served when the attribute is enabled.
	EndpointUniqueID string
}

// Cluster implements the Descriptor cluster (0x001D).
type Cluster struct {
	*datamodel.ClusterBase
	config Config

	// Cached attribute list (built on construction).
	attrList []datamodel.AttributeEntry
}

// New creates a new Descriptor cluster.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
	}
	c.SetFeatureMap(cfg.Features.FeatureMap() & uint32(FeatureTagList))
	c.attrList = c.buildAttributeList()
	return c
}

func (c *Cluster) hasTagList() bool {
	return c.FeatureMap()&uint32(FeatureTagList) != 0
}

// buildAttributeList constructs the list of supported attributes.
func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	viewPriv := datamodel.PrivilegeView

	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrDeviceTypeList, datamodel.AttrQualityList|datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrServerList, datamodel.AttrQualityList|datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrClientList, datamodel.AttrQualityList|datamodel.AttrQualityFixed, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrPartsList, datamodel.AttrQualityList, viewPriv),
	}

	if c.hasTagList() {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrTagList, datamodel.AttrQualityList|datamodel.AttrQualityFixed, viewPriv))
	}
	if c.config.Features.Has(AttrEndpointUniqueID) {
		attrs = append(attrs, datamodel.NewReadOnlyAttribute(AttrEndpointUniqueID, datamodel.AttrQualityFixed, viewPriv))
	}

	return datamodel.MergeAttributeLists(attrs)
}

// registryView returns the view captured by Startup, or nil when the
// cluster is not registered.
func (c *Cluster) registryView() datamodel.ClusterView {
	return c.Context().View
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

	switch path.Attribute {
	case AttrDeviceTypeList:
		return c.readDeviceTypeList(), nil
	case AttrServerList:
		return c.readServerList(), nil
	case AttrClientList:
		return datamodel.ListValue(), nil
	case AttrPartsList:
		return c.readPartsList(), nil
	case AttrTagList:
		if !c.hasTagList() {
			return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
		}
		return c.readTagList(), nil
	case AttrEndpointUniqueID:
		if !c.config.Features.Has(AttrEndpointUniqueID) {
			return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
		}
		return datamodel.StringValue(c.config.EndpointUniqueID), nil
	default:
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}
}

var _ datamodel.ClusterStarter = (*Cluster)(nil)

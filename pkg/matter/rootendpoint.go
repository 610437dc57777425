package matter

import (
	"slices"

	"github.com/backkem/clusterhost/pkg/clusters/basic"
	"github.com/backkem/clusterhost/pkg/clusters/descriptor"
	"github.com/backkem/clusterhost/pkg/clusters/generalcommissioning"
	"github.com/backkem/clusterhost/pkg/clusters/generaldiagnostics"
	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
)

// RootDeviceType is the device type for the root node.
// Device type 0x0016 is "Root Node".
const RootDeviceType uint32 = 0x0016

// RootDeviceTypeRevision is the revision for the root device type.
const RootDeviceTypeRevision uint8 = 1

// rootClusters are hosted on the root endpoint whether or not the device
// configuration lists them.
var rootClusters = []datamodel.ClusterID{
	descriptor.ClusterID,
	basic.ClusterID,
	generalcommissioning.ClusterID,
	generaldiagnostics.ClusterID,
}

// withRootDefaults returns a copy of ep with the root device type and the
// node-wide clusters added when missing. Identity strings set in node
// enable the matching optional Basic Information attributes.
func withRootDefaults(ep config.EndpointConfig, node config.NodeInfo) config.EndpointConfig {
	ep.DeviceTypes = slices.Clone(ep.DeviceTypes)
	ep.Clusters = slices.Clone(ep.Clusters)

	hasRootType := slices.ContainsFunc(ep.DeviceTypes, func(dt config.DeviceTypeConfig) bool {
		return dt.ID == RootDeviceType
	})
	if !hasRootType {
		ep.DeviceTypes = append(ep.DeviceTypes, config.DeviceTypeConfig{ID: RootDeviceType, Revision: RootDeviceTypeRevision})
	}

	for _, id := range rootClusters {
		present := slices.ContainsFunc(ep.Clusters, func(cl config.ClusterConfig) bool {
			return datamodel.ClusterID(cl.ID) == id
		})
		if !present {
			ep.Clusters = append(ep.Clusters, config.ClusterConfig{ID: uint32(id)})
		}
	}

	i := slices.IndexFunc(ep.Clusters, func(cl config.ClusterConfig) bool {
		return datamodel.ClusterID(cl.ID) == basic.ClusterID
	})
	basicCfg := &ep.Clusters[i]
	basicCfg.Attributes = slices.Clone(basicCfg.Attributes)
	identity := identityAttributes(node)
	for _, id := range basic.OptionalAttributes {
		value, ok := identity[id]
		if !ok || value == "" {
			continue
		}
		listed := slices.ContainsFunc(basicCfg.Attributes, func(a config.AttributeConfig) bool {
			return datamodel.AttributeID(a.ID) == id
		})
		if !listed {
			basicCfg.Attributes = append(basicCfg.Attributes, config.AttributeConfig{ID: uint32(id), Value: value})
		}
	}

	// The root endpoint can never be removed.
	ep.Destroyable = false
	return ep
}

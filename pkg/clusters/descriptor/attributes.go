package descriptor

import (
	"slices"

	"github.com/backkem/clusterhost/pkg/datamodel"
)

// Structs are encoded as lists of their fields in tag order.

// readDeviceTypeList builds DeviceTypeList (0x0000) as a list of
// [deviceType, revision] entries.
func (c *Cluster) readDeviceTypeList() datamodel.Value {
	items := make([]datamodel.Value, 0, len(c.config.DeviceTypes))
	for _, dt := range c.config.DeviceTypes {
		items = append(items, datamodel.ListValue(
			datamodel.UintValue(uint64(dt.DeviceTypeID)),
			datamodel.UintValue(uint64(dt.Revision)),
		))
	}
	return datamodel.ListValue(items...)
}

// readServerList builds ServerList (0x0001) from the clusters currently
// registered on this endpoint. Before startup it is empty.
func (c *Cluster) readServerList() datamodel.Value {
	view := c.registryView()
	if view == nil {
		return datamodel.ListValue()
	}

	var items []datamodel.Value
	for _, id := range view.ClustersOn(c.EndpointID()) {
		items = append(items, datamodel.UintValue(uint64(id)))
	}
	return datamodel.ListValue(items...)
}

// readPartsList builds PartsList (0x0003).
//
// For the root endpoint: every other endpoint hosting a cluster.
// For other endpoints: the configured parts.
func (c *Cluster) readPartsList() datamodel.Value {
	var parts []datamodel.EndpointID
	if c.EndpointID() == datamodel.RootEndpointID {
		if view := c.registryView(); view != nil {
			for _, ep := range view.Endpoints() {
				if ep != datamodel.RootEndpointID {
					parts = append(parts, ep)
				}
			}
		}
	} else {
		parts = slices.Clone(c.config.Parts)
		slices.Sort(parts)
		parts = slices.Compact(parts)
	}

	items := make([]datamodel.Value, 0, len(parts))
	for _, ep := range parts {
		items = append(items, datamodel.UintValue(uint64(ep)))
	}
	return datamodel.ListValue(items...)
}

// readTagList builds TagList (0x0004) as a list of
// [mfgCode, namespaceID, tag, label] entries. Absent fields are null.
func (c *Cluster) readTagList() datamodel.Value {
	items := make([]datamodel.Value, 0, len(c.config.SemanticTags))
	for _, tag := range c.config.SemanticTags {
		mfg := datamodel.NullValue()
		if tag.MfgCode != nil {
			mfg = datamodel.UintValue(uint64(*tag.MfgCode))
		}
		label := datamodel.NullValue()
		if tag.Label != nil {
			label = datamodel.StringValue(*tag.Label)
		}
		items = append(items, datamodel.ListValue(
			mfg,
			datamodel.UintValue(uint64(tag.NamespaceID)),
			datamodel.UintValue(uint64(tag.Tag)),
			label,
		))
	}
	return datamodel.ListValue(items...)
}

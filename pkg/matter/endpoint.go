package matter

import (
	"slices"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
)

// endpoint is the node's record of one configured endpoint.
type endpoint struct {
	config  config.EndpointConfig
	enabled bool
}

// EndpointStatus describes an endpoint for inspection.
type EndpointStatus struct {
	ID          datamodel.EndpointID
	Enabled     bool
	Destroyable bool
	DeviceTypes []datamodel.DeviceTypeEntry
	Clusters    []datamodel.ClusterID
}

// Endpoints returns the status of every endpoint, sorted by ID.
func (n *Node) Endpoints() []EndpointStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]EndpointStatus, 0, len(n.endpoints))
	for id, ep := range n.endpoints {
		out = append(out, EndpointStatus{
			ID:          id,
			Enabled:     ep.enabled,
			Destroyable: ep.config.Destroyable,
			DeviceTypes: ep.config.DeviceTypeEntries(),
			Clusters:    ep.config.ClusterIDs(),
		})
	}
	slices.SortFunc(out, func(a, b EndpointStatus) int { return int(a.ID) - int(b.ID) })
	return out
}

// endpointIDs returns the configured endpoint IDs in ascending order.
func (n *Node) endpointIDs() []datamodel.EndpointID {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]datamodel.EndpointID, 0, len(n.endpoints))
	for id := range n.endpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// endpointConfig returns a copy of an endpoint's configuration.
func (n *Node) endpointConfig(id datamodel.EndpointID) (config.EndpointConfig, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ep, ok := n.endpoints[id]
	if !ok {
		return config.EndpointConfig{}, false
	}
	return ep.config, true
}

// attributeString reads a string attribute from the store, returning ""
// when it is absent or not a string.
func (n *Node) attributeString(ep datamodel.EndpointID, cl datamodel.ClusterID, attr datamodel.AttributeID) string {
	v, ok, err := n.store.ReadAttribute(datamodel.ConcreteAttributePath{Endpoint: ep, Cluster: cl, Attribute: attr})
	if err != nil || !ok {
		return ""
	}
	s, _ := v.AsString()
	return s
}

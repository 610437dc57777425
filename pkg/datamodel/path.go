package datamodel

import "fmt"

// Fundamental ID types used throughout the data model.
type (
	// EndpointID is a 16-bit endpoint identifier.
	EndpointID uint16

	// ClusterID is a 32-bit cluster identifier.
	ClusterID uint32

	// AttributeID is a 32-bit attribute identifier.
	AttributeID uint32

	// DataVersion is a 32-bit version number for cluster data.
	DataVersion uint32

	// DeviceTypeID is a 32-bit device type identifier.
	DeviceTypeID uint32
)

const (
	// RootEndpointID is the endpoint hosting node-wide singleton clusters.
	RootEndpointID EndpointID = 0

	// InvalidEndpointID is never assigned to a real endpoint.
	InvalidEndpointID EndpointID = 0xFFFF
)

// String formats the cluster ID as 0x-prefixed hex.
func (c ClusterID) String() string {
	return fmt.Sprintf("0x%04X", uint32(c))
}

// String formats the attribute ID as hex.
func (a AttributeID) String() string {
	return fmt.Sprintf("0x%04X", uint32(a))
}

// ConcreteClusterPath identifies a specific cluster instance on an endpoint.
// It is the key the registry uses to route requests to a handler.
type ConcreteClusterPath struct {
	Endpoint EndpointID
	Cluster  ClusterID
}

// String returns "ep/cluster".
func (p ConcreteClusterPath) String() string {
	return fmt.Sprintf("%d/%s", p.Endpoint, p.Cluster)
}

// Attribute returns the attribute path for attrID on this cluster.
func (p ConcreteClusterPath) Attribute(attrID AttributeID) ConcreteAttributePath {
	return ConcreteAttributePath{
		Endpoint:  p.Endpoint,
		Cluster:   p.Cluster,
		Attribute: attrID,
	}
}

// Less orders paths by endpoint, then cluster.
func (p ConcreteClusterPath) Less(o ConcreteClusterPath) bool {
	if p.Endpoint != o.Endpoint {
		return p.Endpoint < o.Endpoint
	}
	return p.Cluster < o.Cluster
}

// ConcreteAttributePath identifies a specific attribute within a cluster.
type ConcreteAttributePath struct {
	Endpoint  EndpointID
	Cluster   ClusterID
	Attribute AttributeID
}

// ClusterPath returns the cluster path portion.
func (p ConcreteAttributePath) ClusterPath() ConcreteClusterPath {
	return ConcreteClusterPath{
		Endpoint: p.Endpoint,
		Cluster:  p.Cluster,
	}
}

// String returns "ep/cluster/attribute".
func (p ConcreteAttributePath) String() string {
	return fmt.Sprintf("%d/%s/%s", p.Endpoint, p.Cluster, p.Attribute)
}

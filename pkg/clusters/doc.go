// Package clusters holds the server cluster handlers a node can host.
//
// # Architecture
//
// Clusters embed *datamodel.ClusterBase for identity, data versions, global
// attributes and the startup context, and implement the rest of
// datamodel.ServerCluster themselves:
//
//	type MyCluster struct {
//	    *datamodel.ClusterBase
//	}
//
// Optional attributes are decided once, at construction, from the
// featuregate.Snapshot the lifecycle binding resolves for the endpoint.
// Reads of attributes the snapshot did not enable fail with
// datamodel.ErrUnsupportedAttribute.
//
// # Subpackages
//
//   - clusters/descriptor: Descriptor Cluster (0x001D)
//   - clusters/basic: Basic Information Cluster (0x0028)
//   - clusters/generalcommissioning: General Commissioning Cluster (0x0030)
//   - clusters/generaldiagnostics: General Diagnostics Cluster (0x0033)
//   - clusters/onoff: On/Off Cluster (0x0006)
package clusters

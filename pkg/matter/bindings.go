package matter

import (
	"github.com/backkem/clusterhost/pkg/clusters/basic"
	"github.com/backkem/clusterhost/pkg/clusters/descriptor"
	"github.com/backkem/clusterhost/pkg/clusters/generalcommissioning"
	"github.com/backkem/clusterhost/pkg/clusters/generaldiagnostics"
	"github.com/backkem/clusterhost/pkg/clusters/onoff"
	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
	"github.com/backkem/clusterhost/pkg/lifecycle"
)

// registerStandardBindings adds a binding for every cluster kind the node
// can host. Root-only clusters come first so endpoint 0 is described
// before application endpoints reference it.
func (n *Node) registerStandardBindings(deps lifecycle.Deps) error {
	handles := []lifecycle.Handle{
		lifecycle.NewBinding(lifecycle.Definition[*basic.Cluster]{
			Name:               "basic",
			ClusterID:          basic.ClusterID,
			Placement:          lifecycle.RootOnly(),
			OptionalAttributes: basic.OptionalAttributes,
			New: func(ep datamodel.EndpointID, features featuregate.Snapshot) (*basic.Cluster, error) {
				return basic.New(basic.Config{
					EndpointID: ep,
					DeviceInfo: deviceInfo(n.config.Device.Node),
					Features:   features,
					Storage:    n.store,
				})
			},
		}, deps),

		lifecycle.NewBinding(lifecycle.Definition[*generalcommissioning.Cluster]{
			Name:      "generalcommissioning",
			ClusterID: generalcommissioning.ClusterID,
			Placement: lifecycle.RootOnly(),
			New: func(ep datamodel.EndpointID, features featuregate.Snapshot) (*generalcommissioning.Cluster, error) {
				return generalcommissioning.New(generalcommissioning.Config{
					EndpointID:                   ep,
					Features:                     features,
					BasicCommissioningInfo:       n.config.BasicCommissioningInfo,
					LocationCapability:           n.config.LocationCapability,
					SupportsConcurrentConnection: true,
					TermsAndConditions:           n.config.TermsAndConditions,
					Storage:                      n.store,
				}), nil
			},
		}, deps),

		lifecycle.NewBinding(lifecycle.Definition[*generaldiagnostics.Cluster]{
			Name:               "generaldiagnostics",
			ClusterID:          generaldiagnostics.ClusterID,
			Placement:          lifecycle.RootOnly(),
			OptionalAttributes: generaldiagnostics.OptionalAttributes,
			New: func(ep datamodel.EndpointID, features featuregate.Snapshot) (*generaldiagnostics.Cluster, error) {
				return generaldiagnostics.New(generaldiagnostics.Config{
					EndpointID: ep,
					Features:   features,
					Provider:   n.diagnostics,
				})
			},
		}, deps),

		lifecycle.NewBinding(lifecycle.Definition[*descriptor.Cluster]{
			Name:               "descriptor",
			ClusterID:          descriptor.ClusterID,
			Placement:          lifecycle.AnyEndpoint(),
			OptionalAttributes: []datamodel.AttributeID{descriptor.AttrEndpointUniqueID},
			New: func(ep datamodel.EndpointID, features featuregate.Snapshot) (*descriptor.Cluster, error) {
				cfg := descriptor.Config{EndpointID: ep, Features: features}
				if epCfg, ok := n.endpointConfig(ep); ok {
					cfg.DeviceTypes = epCfg.DeviceTypeEntries()
					cfg.EndpointUniqueID = n.attributeString(ep, descriptor.ClusterID, descriptor.AttrEndpointUniqueID)
				}
				return descriptor.New(cfg), nil
			},
		}, deps),

		lifecycle.NewBinding(lifecycle.Definition[*onoff.Cluster]{
			Name:      "onoff",
			ClusterID: onoff.ClusterID,
			Placement: lifecycle.AnyEndpoint(),
			New: func(ep datamodel.EndpointID, features featuregate.Snapshot) (*onoff.Cluster, error) {
				return onoff.New(onoff.Config{
					EndpointID:    ep,
					Features:      features,
					Storage:       n.store,
					OnStateChange: n.config.OnOffChanged,
					LoggerFactory: n.config.LoggerFactory,
				}), nil
			},
		}, deps),
	}

	for _, h := range handles {
		if err := n.manager.Add(h); err != nil {
			return err
		}
	}
	return nil
}

// deviceInfo maps the configured node identity to Basic Information.
func deviceInfo(node config.NodeInfo) basic.DeviceInfo {
	return basic.DeviceInfo{
		VendorName:            node.VendorName,
		VendorID:              node.VendorID,
		ProductName:           node.ProductName,
		ProductID:             node.ProductID,
		HardwareVersion:       node.HardwareVersion,
		HardwareVersionString: node.HardwareVersionString,
		SoftwareVersion:       node.SoftwareVersion,
		SoftwareVersionString: node.SoftwareVersionString,
		NodeLabel:             node.NodeLabel,
		ManufacturingDate:     node.ManufacturingDate,
		PartNumber:            node.PartNumber,
		ProductURL:            node.ProductURL,
		ProductLabel:          node.ProductLabel,
		SerialNumber:          node.SerialNumber,
		UniqueID:              node.UniqueID,
	}
}

// identityAttributes lists the optional Basic Information attributes the
// node identity can supply, keyed by attribute.
func identityAttributes(node config.NodeInfo) map[datamodel.AttributeID]string {
	return map[datamodel.AttributeID]string{
		basic.AttrManufacturingDate: node.ManufacturingDate,
		basic.AttrPartNumber:        node.PartNumber,
		basic.AttrProductURL:        node.ProductURL,
		basic.AttrProductLabel:      node.ProductLabel,
		basic.AttrSerialNumber:      node.SerialNumber,
		basic.AttrUniqueID:          node.UniqueID,
	}
}

// Package matter hosts the server clusters of a Matter node.
//
// A Node owns a cluster registry, a feature gate over the node's attribute
// store, and a bring-up manager holding one binding per cluster kind.
// Enabling an endpoint fires an init event for each cluster configured on
// it; the binding constructs a handler with the resolved feature snapshot
// and registers it. Disabling or removing the endpoint reverses that.
//
// # Creating a Node
//
//	device, err := config.LoadFile("device.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	node, err := matter.NewNode(matter.NodeConfig{
//	    Device:    device,
//	    StatePath: "state.cbor",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := node.Start(ctx); err != nil {
//	    log.Printf("some clusters did not come up: %v", err)
//	}
//	defer node.Stop()
//
// The root endpoint always carries Descriptor, Basic Information, General
// Commissioning and General Diagnostics, whether or not the device file
// lists them.
//
// # Runtime endpoints
//
// AddEndpoint with ID 0 allocates the next unused endpoint ID. The counter
// is persisted with the node state, so IDs are not reused across restarts.
// Only endpoints marked destroyable can be removed.
//
//	id, err := node.AddEndpoint(config.EndpointConfig{
//	    Destroyable: true,
//	    DeviceTypes: []config.DeviceTypeConfig{{ID: 0x0100, Revision: 3}},
//	    Clusters:    []config.ClusterConfig{{ID: 0x001D}, {ID: 0x0006}},
//	})
//
// Reads go through Provider, which resolves the registry for every request.
package matter

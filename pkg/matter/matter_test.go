package matter

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backkem/clusterhost/pkg/clusters/basic"
	"github.com/backkem/clusterhost/pkg/clusters/descriptor"
	"github.com/backkem/clusterhost/pkg/clusters/generalcommissioning"
	"github.com/backkem/clusterhost/pkg/clusters/generaldiagnostics"
	"github.com/backkem/clusterhost/pkg/clusters/onoff"
	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onOffLight uint32 = 0x0100

func testDevice() *config.DeviceConfig {
	return &config.DeviceConfig{
		Node: config.NodeInfo{
			VendorName:   "Test Vendor",
			VendorID:     0xFFF1,
			ProductName:  "Test Light",
			ProductID:    0x8001,
			SerialNumber: "TEST-001",
		},
		Endpoints: []config.EndpointConfig{
			{ID: 0},
			{
				ID:          1,
				DeviceTypes: []config.DeviceTypeConfig{{ID: onOffLight, Revision: 3}},
				Clusters: []config.ClusterConfig{
					{ID: uint32(descriptor.ClusterID)},
					{ID: uint32(onoff.ClusterID)},
				},
			},
		},
	}
}

func lightEndpoint() config.EndpointConfig {
	return config.EndpointConfig{
		Destroyable: true,
		DeviceTypes: []config.DeviceTypeConfig{{ID: onOffLight, Revision: 3}},
		Clusters: []config.ClusterConfig{
			{ID: uint32(descriptor.ClusterID)},
			{ID: uint32(onoff.ClusterID)},
		},
	}
}

func newTestNode(t *testing.T, cfg NodeConfig) *Node {
	t.Helper()
	if cfg.Device == nil {
		cfg.Device = testDevice()
	}
	node, err := NewNode(cfg)
	require.NoError(t, err)
	return node
}

func startedNode(t *testing.T, cfg NodeConfig) *Node {
	t.Helper()
	node := newTestNode(t, cfg)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() {
		if node.State().CanStop() {
			_ = node.Stop()
		}
	})
	return node
}

func readAttr(t *testing.T, n *Node, ep datamodel.EndpointID, cl datamodel.ClusterID, attr datamodel.AttributeID) datamodel.Value {
	t.Helper()
	v, err := n.Provider().ReadAttribute(context.Background(), datamodel.ConcreteAttributePath{
		Endpoint: ep, Cluster: cl, Attribute: attr,
	})
	require.NoError(t, err)
	return v
}

func uints(t *testing.T, v datamodel.Value) []uint64 {
	t.Helper()
	require.Equal(t, datamodel.KindList, v.Kind)
	out := make([]uint64, 0, len(v.List))
	for _, item := range v.List {
		u, err := item.AsUint()
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestNewNode_Validation(t *testing.T) {
	noVendor := testDevice()
	noVendor.Node.VendorID = 0
	noProduct := testDevice()
	noProduct.Node.ProductID = 0
	dupEndpoint := testDevice()
	dupEndpoint.Endpoints = append(dupEndpoint.Endpoints, config.EndpointConfig{ID: 1})

	tests := []struct {
		name string
		cfg  NodeConfig
		want error
	}{
		{"no device", NodeConfig{}, ErrDeviceRequired},
		{"no vendor", NodeConfig{Device: noVendor}, ErrInvalidVendorID},
		{"no product", NodeConfig{Device: noProduct}, ErrInvalidProductID},
		{"duplicate endpoint", NodeConfig{Device: dupEndpoint}, ErrInvalidConfig},
		{"bad location", NodeConfig{Device: testDevice(), LocationCapability: 7}, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNode(tt.cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewNode_DoesNotModifyDevice(t *testing.T) {
	device := testDevice()
	newTestNode(t, NodeConfig{Device: device})

	assert.Empty(t, device.Endpoints[0].Clusters)
	assert.Empty(t, device.Endpoints[0].DeviceTypes)
}

func TestNewNode_AddsMissingRootEndpoint(t *testing.T) {
	device := testDevice()
	device.Endpoints = device.Endpoints[1:]
	node := startedNode(t, NodeConfig{Device: device})

	assert.Equal(t, []datamodel.EndpointID{0, 1}, node.Registry().Endpoints())
}

func TestNode_StartRegistersClusters(t *testing.T) {
	var states []NodeState
	node := startedNode(t, NodeConfig{
		OnStateChanged: func(s NodeState) { states = append(states, s) },
	})

	assert.Equal(t, NodeStateRunning, node.State())
	assert.Equal(t, []NodeState{NodeStateInitialized, NodeStateStarting, NodeStateRunning}, states)

	assert.Equal(t, []datamodel.ClusterID{
		descriptor.ClusterID,
		basic.ClusterID,
		generalcommissioning.ClusterID,
		generaldiagnostics.ClusterID,
	}, node.Registry().ClustersOn(0))
	assert.Equal(t, []datamodel.ClusterID{onoff.ClusterID, descriptor.ClusterID}, node.Registry().ClustersOn(1))

	for _, st := range node.Endpoints() {
		assert.True(t, st.Enabled, "endpoint %d", st.ID)
	}
}

func TestNode_StartTwice(t *testing.T) {
	node := startedNode(t, NodeConfig{})
	assert.ErrorIs(t, node.Start(context.Background()), ErrAlreadyStarted)
}

func TestNode_StopStates(t *testing.T) {
	node := newTestNode(t, NodeConfig{})
	assert.ErrorIs(t, node.Stop(), ErrNotStarted)

	require.NoError(t, node.Start(context.Background()))
	require.NoError(t, node.Stop())
	assert.Equal(t, NodeStateStopped, node.State())
	assert.Equal(t, 0, node.Registry().Len())

	assert.ErrorIs(t, node.Stop(), ErrAlreadyStopped)
	assert.ErrorIs(t, node.Start(context.Background()), ErrAlreadyStopped)
}

// cancelAfter reports cancellation once Err has been checked n times.
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n == 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestNode_StartCancelledMidway(t *testing.T) {
	var states []NodeState
	node := newTestNode(t, NodeConfig{
		OnStateChanged: func(s NodeState) { states = append(states, s) },
	})

	// Endpoint 0 comes up, endpoint 1 is never reached.
	err := node.Start(&cancelAfter{Context: context.Background(), n: 1})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, NodeStateInitialized, node.State())
	assert.Equal(t, []NodeState{NodeStateInitialized, NodeStateStarting, NodeStateInitialized}, states)
	assert.Equal(t, 0, node.Registry().Len())
	for _, st := range node.Endpoints() {
		assert.False(t, st.Enabled, "endpoint %d", st.ID)
	}

	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Stop() })
	assert.Equal(t, NodeStateRunning, node.State())
	assert.Len(t, node.Registry().ClustersOn(1), 2)
}

func TestNode_DescriptorLists(t *testing.T) {
	node := startedNode(t, NodeConfig{})

	servers := uints(t, readAttr(t, node, 1, descriptor.ClusterID, descriptor.AttrServerList))
	assert.Equal(t, []uint64{uint64(onoff.ClusterID), uint64(descriptor.ClusterID)}, servers)

	parts := uints(t, readAttr(t, node, 0, descriptor.ClusterID, descriptor.AttrPartsList))
	assert.Equal(t, []uint64{1}, parts)

	deviceTypes := readAttr(t, node, 0, descriptor.ClusterID, descriptor.AttrDeviceTypeList)
	require.Len(t, deviceTypes.List, 1)
	assert.Equal(t, []uint64{uint64(RootDeviceType), uint64(RootDeviceTypeRevision)}, uints(t, deviceTypes.List[0]))
}

func TestNode_RootIdentity(t *testing.T) {
	node := startedNode(t, NodeConfig{})

	serial, err := readAttr(t, node, 0, basic.ClusterID, basic.AttrSerialNumber).AsString()
	require.NoError(t, err)
	assert.Equal(t, "TEST-001", serial)

	// Not set in the node identity, so not hosted.
	_, err = node.Provider().ReadAttribute(context.Background(), datamodel.ConcreteAttributePath{
		Endpoint: 0, Cluster: basic.ClusterID, Attribute: basic.AttrPartNumber,
	})
	assert.ErrorIs(t, err, datamodel.ErrUnsupportedAttribute)
}

func TestNode_AddEndpointWhileRunning(t *testing.T) {
	node := startedNode(t, NodeConfig{})

	id, err := node.AddEndpoint(lightEndpoint())
	require.NoError(t, err)
	assert.Equal(t, datamodel.EndpointID(2), id)

	assert.Equal(t, []datamodel.ClusterID{onoff.ClusterID, descriptor.ClusterID}, node.Registry().ClustersOn(id))
	parts := uints(t, readAttr(t, node, 0, descriptor.ClusterID, descriptor.AttrPartsList))
	assert.Equal(t, []uint64{1, 2}, parts)
}

func TestNode_AddEndpointBeforeStart(t *testing.T) {
	node := newTestNode(t, NodeConfig{})

	id, err := node.AddEndpoint(lightEndpoint())
	require.NoError(t, err)
	assert.Empty(t, node.Registry().ClustersOn(id))

	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Stop() })
	assert.Len(t, node.Registry().ClustersOn(id), 2)
}

func TestNode_AddEndpointErrors(t *testing.T) {
	node := startedNode(t, NodeConfig{})

	ep := lightEndpoint()
	ep.ID = 1
	_, err := node.AddEndpoint(ep)
	assert.ErrorIs(t, err, ErrEndpointExists)

	ep.ID = uint16(datamodel.InvalidEndpointID)
	_, err = node.AddEndpoint(ep)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	dup := lightEndpoint()
	dup.Clusters = append(dup.Clusters, config.ClusterConfig{ID: uint32(onoff.ClusterID)})
	_, err = node.AddEndpoint(dup)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNode_RemoveEndpoint(t *testing.T) {
	node := startedNode(t, NodeConfig{})

	assert.ErrorIs(t, node.RemoveEndpoint(0), ErrRootEndpointReserved)
	assert.ErrorIs(t, node.RemoveEndpoint(1), ErrEndpointNotDestroyable)
	assert.ErrorIs(t, node.RemoveEndpoint(9), ErrEndpointNotFound)

	id, err := node.AddEndpoint(lightEndpoint())
	require.NoError(t, err)
	require.NoError(t, node.Toggle(id))

	onOffPath := datamodel.ConcreteAttributePath{Endpoint: id, Cluster: onoff.ClusterID, Attribute: onoff.AttrOnOff}
	_, ok, err := node.Store().ReadAttribute(onOffPath)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, node.RemoveEndpoint(id))
	assert.Empty(t, node.Registry().ClustersOn(id))
	assert.Equal(t, []uint64{1}, uints(t, readAttr(t, node, 0, descriptor.ClusterID, descriptor.AttrPartsList)))

	_, ok, err = node.Store().ReadAttribute(onOffPath)
	require.NoError(t, err)
	assert.False(t, ok)

	// IDs are never reused.
	next, err := node.AddEndpoint(lightEndpoint())
	require.NoError(t, err)
	assert.Equal(t, id+1, next)
}

func TestNode_DisableEnableEndpoint(t *testing.T) {
	node := startedNode(t, NodeConfig{})

	require.NoError(t, node.DisableEndpoint(1))
	require.NoError(t, node.DisableEndpoint(1))
	assert.Empty(t, node.Registry().ClustersOn(1))
	assert.Equal(t, []uint64{}, uints(t, readAttr(t, node, 0, descriptor.ClusterID, descriptor.AttrPartsList)))

	require.NoError(t, node.EnableEndpoint(1))
	require.NoError(t, node.EnableEndpoint(1))
	assert.Len(t, node.Registry().ClustersOn(1), 2)

	assert.ErrorIs(t, node.EnableEndpoint(42), ErrEndpointNotFound)
	assert.ErrorIs(t, node.DisableEndpoint(42), ErrEndpointNotFound)
}

func TestNode_UnknownClusterSkipped(t *testing.T) {
	device := testDevice()
	device.Endpoints[1].Clusters = append(device.Endpoints[1].Clusters, config.ClusterConfig{ID: 0x0300})
	node := startedNode(t, NodeConfig{Device: device})

	assert.Equal(t, []datamodel.ClusterID{onoff.ClusterID, descriptor.ClusterID}, node.Registry().ClustersOn(1))
}

type occupant struct {
	*datamodel.ClusterBase
}

func (o *occupant) AttributeList(datamodel.ConcreteClusterPath) []datamodel.AttributeEntry {
	return datamodel.MergeAttributeLists(nil)
}

func (o *occupant) ReadAttribute(context.Context, datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
}

func TestNode_BringUpError(t *testing.T) {
	node := newTestNode(t, NodeConfig{})
	require.NoError(t, node.Registry().Register(&occupant{datamodel.NewClusterBase(onoff.ClusterID, 1, 1)}))

	err := node.Start(context.Background())
	t.Cleanup(func() { _ = node.Stop() })

	var bringUp *BringUpError
	require.True(t, errors.As(err, &bringUp))
	assert.Equal(t, datamodel.EndpointID(1), bringUp.Endpoint)
	assert.Equal(t, []datamodel.ClusterID{onoff.ClusterID}, bringUp.Clusters)

	// The node still runs and the rest of the endpoint is up.
	assert.Equal(t, NodeStateRunning, node.State())
	assert.Contains(t, node.Registry().ClustersOn(1), descriptor.ClusterID)
}

func TestNode_Toggle(t *testing.T) {
	var (
		changes   []bool
		endpoints []datamodel.EndpointID
	)
	node := startedNode(t, NodeConfig{
		OnOffChanged: func(ep datamodel.EndpointID, on bool) {
			endpoints = append(endpoints, ep)
			changes = append(changes, on)
		},
	})

	require.NoError(t, node.Toggle(1))
	require.NoError(t, node.Toggle(1))
	assert.Equal(t, []bool{true, false}, changes)
	assert.Equal(t, []datamodel.EndpointID{1, 1}, endpoints)

	assert.ErrorIs(t, node.Toggle(0), registry.ErrNotFound)
}

func TestNode_StatePersistsAcrossRestart(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.cbor")

	first := newTestNode(t, NodeConfig{StatePath: statePath})
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Toggle(1))
	added, err := first.AddEndpoint(lightEndpoint())
	require.NoError(t, err)
	assert.Equal(t, datamodel.EndpointID(2), added)
	reboots := readAttr(t, first, 0, generaldiagnostics.ClusterID, generaldiagnostics.AttrRebootCount)
	require.NoError(t, first.Stop())

	second := startedNode(t, NodeConfig{StatePath: statePath})

	on, err := readAttr(t, second, 1, onoff.ClusterID, onoff.AttrOnOff).AsBool()
	require.NoError(t, err)
	assert.True(t, on)

	next, err := second.AddEndpoint(lightEndpoint())
	require.NoError(t, err)
	assert.Equal(t, datamodel.EndpointID(3), next)

	before, err := reboots.AsUint()
	require.NoError(t, err)
	after, err := readAttr(t, second, 0, generaldiagnostics.ClusterID, generaldiagnostics.AttrRebootCount).AsUint()
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestNode_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	node := startedNode(t, NodeConfig{MetricsRegisterer: reg})

	expected := `
# HELP matter_registry_paths Number of cluster paths currently registered.
# TYPE matter_registry_paths gauge
matter_registry_paths 6
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "matter_registry_paths"))

	require.NoError(t, node.Stop())
	expected = `
# HELP matter_registry_paths Number of cluster paths currently registered.
# TYPE matter_registry_paths gauge
matter_registry_paths 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "matter_registry_paths"))
}

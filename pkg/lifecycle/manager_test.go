package lifecycle

import (
	"testing"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Handle that only records the events it receives.
type recorder struct {
	name    string
	cluster datamodel.ClusterID
	log     *[]string
}

func (r *recorder) Name() string                   { return r.name }
func (r *recorder) ClusterID() datamodel.ClusterID { return r.cluster }
func (r *recorder) Placement() Placement           { return AnyEndpoint() }
func (r *recorder) OnEndpointInit(datamodel.EndpointID) {
	*r.log = append(*r.log, "init:"+r.name)
}
func (r *recorder) OnEndpointShutdown(datamodel.EndpointID, datamodel.ShutdownType) {
	*r.log = append(*r.log, "shutdown:"+r.name)
}
func (r *recorder) State(datamodel.EndpointID) BindingState { return StateUninitialized }
func (r *recorder) ActiveEndpoints() []datamodel.EndpointID { return nil }

func TestManager_Ordering(t *testing.T) {
	var events []string
	m := NewManager(nil)
	require.NoError(t, m.Add(&recorder{name: "a", cluster: 1, log: &events}))
	require.NoError(t, m.Add(&recorder{name: "b", cluster: 2, log: &events}))

	m.OnEndpointInit(1)
	m.OnEndpointShutdown(1, datamodel.ShutdownGraceful)

	assert.Equal(t, []string{"init:a", "init:b", "shutdown:b", "shutdown:a"}, events)
}

func TestManager_AddDuplicateCluster(t *testing.T) {
	var events []string
	m := NewManager(nil)
	require.NoError(t, m.Add(&recorder{name: "a", cluster: 1, log: &events}))

	err := m.Add(&recorder{name: "again", cluster: 1, log: &events})
	assert.ErrorIs(t, err, ErrBindingExists)
	assert.Len(t, m.Bindings(), 1)
}

func TestManager_PerClusterCallbacks(t *testing.T) {
	f := newFixture()
	m := NewManager(nil)
	b := f.binding(AnyEndpoint())
	require.NoError(t, m.Add(b))

	require.NoError(t, m.InitCluster(4, probeCluster))
	assert.Equal(t, StateActive, b.State(4))

	require.NoError(t, m.ShutdownCluster(4, probeCluster, datamodel.ShutdownRemoved))
	assert.Equal(t, StateUninitialized, b.State(4))

	assert.ErrorIs(t, m.InitCluster(4, 0x9999), ErrBindingNotFound)
	assert.ErrorIs(t, m.ShutdownCluster(4, 0x9999, datamodel.ShutdownGraceful), ErrBindingNotFound)

	got, ok := m.Binding(probeCluster)
	require.True(t, ok)
	assert.Equal(t, "probe", got.Name())
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nodeLabel = datamodel.ConcreteAttributePath{Endpoint: 0, Cluster: 0x0028, Attribute: 0x0005}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "node.cbor")

	s, err := OpenFileStore(path, nil, nil)
	require.NoError(t, err)

	_, ok, err := s.ReadAttribute(nodeLabel)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.WriteAttribute(nodeLabel, datamodel.StringValue("kitchen")))
	require.NoError(t, s.WriteAttribute(
		datamodel.ConcreteAttributePath{Endpoint: 1, Cluster: 0x0006, Attribute: 0x0000},
		datamodel.BoolValue(true),
	))
	require.NoError(t, s.SaveMinUnusedEndpointID(4))

	reopened, err := OpenFileStore(path, nil, nil)
	require.NoError(t, err)

	v, ok, err := reopened.ReadAttribute(nodeLabel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, datamodel.StringValue("kitchen"), v)

	v, ok, err = reopened.ReadAttribute(datamodel.ConcreteAttributePath{Endpoint: 1, Cluster: 0x0006, Attribute: 0x0000})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, datamodel.BoolValue(true), v)

	id, ok, err := reopened.LoadMinUnusedEndpointID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, datamodel.EndpointID(4), id)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_OverlaysDefaults(t *testing.T) {
	defaults := NewMemoryStore()
	require.NoError(t, defaults.WriteAttribute(nodeLabel, datamodel.StringValue("default")))

	s, err := OpenFileStore(filepath.Join(t.TempDir(), "node.cbor"), defaults, nil)
	require.NoError(t, err)

	v, ok, err := s.ReadAttribute(nodeLabel)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, datamodel.StringValue("default"), v)

	require.NoError(t, s.WriteAttribute(nodeLabel, datamodel.StringValue("override")))
	v, _, _ = s.ReadAttribute(nodeLabel)
	assert.Equal(t, datamodel.StringValue("override"), v)

	// Deleting the persisted value reveals the default again.
	require.NoError(t, s.DeleteAttribute(nodeLabel))
	v, _, _ = s.ReadAttribute(nodeLabel)
	assert.Equal(t, datamodel.StringValue("default"), v)

	// The defaults layer itself is never written.
	v, _, _ = defaults.ReadAttribute(nodeLabel)
	assert.Equal(t, datamodel.StringValue("default"), v)
}

func TestFileStore_ListValuesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.cbor")
	s, err := OpenFileStore(path, nil, nil)
	require.NoError(t, err)

	list := datamodel.ListValue(datamodel.UintValue(1), datamodel.StringValue("a"), datamodel.IntValue(-3))
	p := datamodel.ConcreteAttributePath{Endpoint: 1, Cluster: 0x001D, Attribute: 0x0003}
	require.NoError(t, s.WriteAttribute(p, list))

	reopened, err := OpenFileStore(path, nil, nil)
	require.NoError(t, err)
	v, ok, err := reopened.ReadAttribute(p)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, list.Equal(v), "got %v", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.cbor")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0x00, 0x13}, 0o600))

	_, err := OpenFileStore(path, nil, nil)
	assert.ErrorIs(t, err, ErrCorruptState)
}

func TestFileStore_DeleteMissingIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.cbor")
	s, err := OpenFileStore(path, nil, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteAttribute(nodeLabel))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no write expected for a no-op delete")
}

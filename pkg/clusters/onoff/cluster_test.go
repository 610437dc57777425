package onoff

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
	"github.com/pion/logging"
)

var onOffPath = datamodel.ConcreteAttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrOnOff}

// createTestCluster creates a cluster with default test configuration.
func createTestCluster(features Feature, storage config.AttributeStore) *Cluster {
	return New(Config{
		EndpointID: 1,
		Features:   featuregate.NewSnapshot(uint32(features)),
		Storage:    storage,
	})
}

func readAttr(t *testing.T, c *Cluster, attr datamodel.AttributeID) (datamodel.Value, error) {
	t.Helper()
	return c.ReadAttribute(context.Background(), datamodel.ConcreteAttributePath{
		Endpoint: 1, Cluster: ClusterID, Attribute: attr,
	})
}

func TestClusterID(t *testing.T) {
	c := createTestCluster(0, nil)
	if c.ID() != ClusterID {
		t.Errorf("expected cluster ID 0x%04X, got 0x%04X", ClusterID, c.ID())
	}
	if c.ClusterRevision() != ClusterRevision {
		t.Errorf("expected revision %d, got %d", ClusterRevision, c.ClusterRevision())
	}
}

func TestReadOnOff_InitialState(t *testing.T) {
	c := New(Config{EndpointID: 1, InitialOnOff: true})

	v, err := readAttr(t, c, AttrOnOff)
	if err != nil {
		t.Fatalf("ReadAttribute failed: %v", err)
	}
	if !v.Equal(datamodel.BoolValue(true)) {
		t.Errorf("expected true, got %v", v)
	}
}

func TestLightingAttributesGated(t *testing.T) {
	plain := createTestCluster(0, nil)
	lighting := createTestCluster(FeatureLighting, nil)

	for _, attr := range []datamodel.AttributeID{AttrGlobalSceneControl, AttrOnTime, AttrOffWaitTime, AttrStartUpOnOff} {
		if _, err := readAttr(t, plain, attr); !errors.Is(err, datamodel.ErrUnsupportedAttribute) {
			t.Errorf("attr 0x%04X: expected ErrUnsupportedAttribute without LT, got %v", uint32(attr), err)
		}
		if _, err := readAttr(t, lighting, attr); err != nil {
			t.Errorf("attr 0x%04X: expected value with LT, got %v", uint32(attr), err)
		}
	}

	fm, _ := readAttr(t, lighting, datamodel.GlobalAttrFeatureMap)
	if !fm.Equal(datamodel.UintValue(uint64(FeatureLighting))) {
		t.Errorf("expected feature map %d, got %v", FeatureLighting, fm)
	}

	if len(plain.AttributeList(datamodel.ConcreteClusterPath{})) != 4 {
		t.Errorf("expected OnOff plus 3 globals, got %d", len(plain.AttributeList(datamodel.ConcreteClusterPath{})))
	}

	v, _ := readAttr(t, lighting, AttrStartUpOnOff)
	if !v.IsNull() {
		t.Errorf("expected null StartUpOnOff, got %v", v)
	}
}

func TestCommandsNotifyListener(t *testing.T) {
	var stateChanges []bool
	c := New(Config{
		EndpointID:    1,
		OnStateChange: func(_ datamodel.EndpointID, on bool) { stateChanges = append(stateChanges, on) },
	})

	var changed []datamodel.ConcreteAttributePath
	if err := c.Startup(datamodel.ClusterContext{
		Listener: datamodel.AttributeChangeFunc(func(p datamodel.ConcreteAttributePath) { changed = append(changed, p) }),
	}); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	before := c.DataVersion(onOffPath.ClusterPath())

	if err := c.On(); err != nil {
		t.Fatalf("On: %v", err)
	}
	c.Off()
	c.Off() // no change, no notification
	if err := c.Toggle(); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	if len(changed) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(changed))
	}
	if want := []bool{true, false, true}; !slices.Equal(stateChanges, want) {
		t.Errorf("expected state changes %v, got %v", want, stateChanges)
	}
	if got := c.DataVersion(onOffPath.ClusterPath()); got != before+3 {
		t.Errorf("expected data version %d, got %d", before+3, got)
	}
}

func TestOffOnlyRejectsOn(t *testing.T) {
	c := createTestCluster(FeatureOffOnly, nil)
	if err := c.On(); !errors.Is(err, datamodel.ErrInvalidInState) {
		t.Errorf("expected ErrInvalidInState, got %v", err)
	}
	if c.OnOff() {
		t.Error("expected state to remain off")
	}
}

func TestShutdownGracefulPersists(t *testing.T) {
	store := config.NewMemoryStore()
	c := createTestCluster(0, store)
	if err := c.On(); err != nil {
		t.Fatalf("On: %v", err)
	}

	c.Shutdown(datamodel.ShutdownGraceful)

	v, ok, _ := store.ReadAttribute(onOffPath)
	if !ok || !v.Equal(datamodel.BoolValue(true)) {
		t.Fatalf("expected persisted true, got %v (present=%v)", v, ok)
	}

	again := createTestCluster(0, store)
	if !again.OnOff() {
		t.Error("expected restored state to be on")
	}
}

func TestShutdownRemovedDeletesState(t *testing.T) {
	store := config.NewMemoryStore()
	c := createTestCluster(0, store)
	if err := c.On(); err != nil {
		t.Fatalf("On: %v", err)
	}

	c.Shutdown(datamodel.ShutdownRemoved)

	if _, ok, _ := store.ReadAttribute(onOffPath); ok {
		t.Error("expected persisted state to be deleted")
	}
}

// failingStore reads nothing and fails every write and delete.
type failingStore struct{}

var errStoreFailed = errors.New("disk full")

func (failingStore) ReadAttribute(datamodel.ConcreteAttributePath) (datamodel.Value, bool, error) {
	return datamodel.Value{}, false, nil
}

func (failingStore) WriteAttribute(datamodel.ConcreteAttributePath, datamodel.Value) error {
	return errStoreFailed
}

func (failingStore) DeleteAttribute(datamodel.ConcreteAttributePath) error {
	return errStoreFailed
}

func TestStorageErrorsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	lf := logging.NewDefaultLoggerFactory()
	lf.DefaultLogLevel = logging.LogLevelWarn
	lf.Writer = &logs

	c := New(Config{
		EndpointID:    1,
		Storage:       failingStore{},
		LoggerFactory: lf,
	})

	if err := c.On(); err != nil {
		t.Fatalf("On: %v", err)
	}
	if !c.OnOff() {
		t.Error("expected state to change despite the store failure")
	}
	if !bytes.Contains(logs.Bytes(), []byte("failed to persist OnOff: disk full")) {
		t.Errorf("missing write warning in %q", logs.String())
	}

	logs.Reset()
	c.Shutdown(datamodel.ShutdownRemoved)
	if !bytes.Contains(logs.Bytes(), []byte("failed to delete persisted OnOff: disk full")) {
		t.Errorf("missing delete warning in %q", logs.String())
	}
}

func TestStartUpOnOff(t *testing.T) {
	tests := []struct {
		name     string
		stored   datamodel.Value
		previous bool
		want     bool
	}{
		{"Off", datamodel.UintValue(uint64(StartUpOnOffOff)), true, false},
		{"On", datamodel.UintValue(uint64(StartUpOnOffOn)), false, true},
		{"Toggle", datamodel.UintValue(uint64(StartUpOnOffToggle)), true, false},
		{"Previous", datamodel.UintValue(uint64(StartUpOnOffPrevious)), true, true},
		{"Null", datamodel.NullValue(), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := config.NewMemoryStore()
			_ = store.WriteAttribute(onOffPath, datamodel.BoolValue(tt.previous))
			_ = store.WriteAttribute(
				datamodel.ConcreteAttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrStartUpOnOff},
				tt.stored,
			)

			c := createTestCluster(FeatureLighting, store)
			if c.OnOff() != tt.want {
				t.Errorf("expected %v, got %v", tt.want, c.OnOff())
			}
		})
	}
}

func TestSetStartUpOnOff(t *testing.T) {
	store := config.NewMemoryStore()
	c := createTestCluster(FeatureLighting, store)

	bad := StartUpOnOff(7)
	if err := c.SetStartUpOnOff(&bad); !errors.Is(err, datamodel.ErrConstraintError) {
		t.Errorf("expected ErrConstraintError, got %v", err)
	}

	on := StartUpOnOffOn
	if err := c.SetStartUpOnOff(&on); err != nil {
		t.Fatalf("SetStartUpOnOff: %v", err)
	}
	v, _ := readAttr(t, c, AttrStartUpOnOff)
	if !v.Equal(datamodel.UintValue(1)) {
		t.Errorf("expected 1, got %v", v)
	}

	plain := createTestCluster(0, nil)
	if err := plain.SetStartUpOnOff(&on); !errors.Is(err, datamodel.ErrUnsupportedWrite) {
		t.Errorf("expected ErrUnsupportedWrite, got %v", err)
	}
}

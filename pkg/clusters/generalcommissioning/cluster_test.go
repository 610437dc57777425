package generalcommissioning

import (
	"context"
	"errors"
	"testing"

	"github.com/backkem/clusterhost/pkg/config"
	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
)

func createTestCluster(features Feature, storage config.AttributeStore) *Cluster {
	return New(Config{
		EndpointID: 0,
		Features:   featuregate.NewSnapshot(uint32(features)),
		BasicCommissioningInfo: BasicCommissioningInfo{
			FailSafeExpiryLengthSeconds:  60,
			MaxCumulativeFailsafeSeconds: 900,
		},
		LocationCapability:           RegulatoryIndoorOutdoor,
		SupportsConcurrentConnection: true,
		TermsAndConditions: TermsAndConditions{
			MinRequiredVersion:       2,
			RequiredAcknowledgements: 0b0011,
		},
		Storage: storage,
	})
}

func read(t *testing.T, c *Cluster, attr datamodel.AttributeID) (datamodel.Value, error) {
	t.Helper()
	return c.ReadAttribute(context.Background(), datamodel.ConcreteAttributePath{
		Endpoint: 0, Cluster: ClusterID, Attribute: attr,
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

func TestReadMandatoryAttributes(t *testing.T) {
	c := createTestCluster(0, nil)

	tests := []struct {
		name   string
		attrID datamodel.AttributeID
		want   datamodel.Value
	}{
		{"Breadcrumb", AttrBreadcrumb, datamodel.UintValue(0)},
		{"BasicCommissioningInfo", AttrBasicCommissioningInfo, datamodel.ListValue(datamodel.UintValue(60), datamodel.UintValue(900))},
		{"RegulatoryConfig", AttrRegulatoryConfig, datamodel.UintValue(uint64(RegulatoryIndoorOutdoor))},
		{"LocationCapability", AttrLocationCapability, datamodel.UintValue(uint64(RegulatoryIndoorOutdoor))},
		{"SupportsConcurrentConnection", AttrSupportsConcurrentConnection, datamodel.BoolValue(true)},
		{"FeatureMap", datamodel.GlobalAttrFeatureMap, datamodel.UintValue(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := read(t, c, tt.attrID)
			if err != nil {
				t.Fatalf("ReadAttribute failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBreadcrumb(t *testing.T) {
	c := createTestCluster(0, nil)

	var changed int
	if err := c.Startup(datamodel.ClusterContext{
		Listener: datamodel.AttributeChangeFunc(func(datamodel.ConcreteAttributePath) { changed++ }),
	}); err != nil {
		t.Fatalf("Startup: %v", err)
	}

	c.SetBreadcrumb(42)
	c.SetBreadcrumb(42)

	if c.Breadcrumb() != 42 {
		t.Errorf("expected breadcrumb 42, got %d", c.Breadcrumb())
	}
	if changed != 1 {
		t.Errorf("expected 1 notification, got %d", changed)
	}
	got, _ := read(t, c, AttrBreadcrumb)
	if !got.Equal(datamodel.UintValue(42)) {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestSetRegulatoryConfig(t *testing.T) {
	tests := []struct {
		name       string
		capability RegulatoryLocationType
		location   RegulatoryLocationType
		want       CommissioningErrorCode
	}{
		{"IndoorOutdoorAcceptsIndoor", RegulatoryIndoorOutdoor, RegulatoryIndoor, CommissioningOK},
		{"IndoorOutdoorAcceptsOutdoor", RegulatoryIndoorOutdoor, RegulatoryOutdoor, CommissioningOK},
		{"IndoorRejectsOutdoor", RegulatoryIndoor, RegulatoryOutdoor, CommissioningValueOutsideRange},
		{"OutdoorRejectsIndoor", RegulatoryOutdoor, RegulatoryIndoor, CommissioningValueOutsideRange},
		{"IndoorAcceptsIndoorOutdoor", RegulatoryIndoor, RegulatoryIndoorOutdoor, CommissioningOK},
		{"RejectsUnknown", RegulatoryIndoorOutdoor, RegulatoryLocationType(9), CommissioningValueOutsideRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{LocationCapability: tt.capability})
			code, err := c.SetRegulatoryConfig(tt.location)
			if err != nil {
				t.Fatalf("SetRegulatoryConfig: %v", err)
			}
			if code != tt.want {
				t.Errorf("expected %s, got %s", tt.want, code)
			}
			if code == CommissioningOK && c.RegulatoryConfig() != tt.location {
				t.Errorf("expected %s, got %s", tt.location, c.RegulatoryConfig())
			}
			if code != CommissioningOK && c.RegulatoryConfig() != tt.capability {
				t.Errorf("state changed on rejection: %s", c.RegulatoryConfig())
			}
		})
	}
}

func TestRegulatoryConfigPersisted(t *testing.T) {
	store := config.NewMemoryStore()
	c := createTestCluster(0, store)
	if _, err := c.SetRegulatoryConfig(RegulatoryOutdoor); err != nil {
		t.Fatalf("SetRegulatoryConfig: %v", err)
	}

	again := createTestCluster(0, store)
	if again.RegulatoryConfig() != RegulatoryOutdoor {
		t.Errorf("expected restored Outdoor, got %s", again.RegulatoryConfig())
	}

	again.Shutdown(datamodel.ShutdownRemoved)
	if store.Len() != 0 {
		t.Errorf("expected removal to clear persisted state, %d entries left", store.Len())
	}
}

func TestTermsAndConditionsGated(t *testing.T) {
	plain := createTestCluster(0, nil)
	tc := createTestCluster(FeatureTermsAndConditions, nil)

	for _, attr := range []datamodel.AttributeID{AttrTCAcceptedVersion, AttrTCMinRequiredVersion, AttrTCAcknowledgements, AttrTCAcknowledgementsRequired} {
		if _, err := read(t, plain, attr); !errors.Is(err, datamodel.ErrUnsupportedAttribute) {
			t.Errorf("attr 0x%04X: expected ErrUnsupportedAttribute, got %v", uint32(attr), err)
		}
		if _, err := read(t, tc, attr); err != nil {
			t.Errorf("attr 0x%04X: expected value with TC, got %v", uint32(attr), err)
		}
	}

	if _, err := plain.SetTCAcknowledgements(2, 3); !errors.Is(err, datamodel.ErrUnsupportedWrite) {
		t.Errorf("expected ErrUnsupportedWrite, got %v", err)
	}
	if !plain.TCAccepted() {
		t.Error("expected TCAccepted without the TC feature")
	}
}

func TestSetTCAcknowledgements(t *testing.T) {
	store := config.NewMemoryStore()
	c := createTestCluster(FeatureTermsAndConditions, store)

	required, _ := read(t, c, AttrTCAcknowledgementsRequired)
	if !required.Equal(datamodel.BoolValue(true)) {
		t.Errorf("expected acknowledgements required, got %v", required)
	}

	tests := []struct {
		version uint16
		acks    uint16
		want    CommissioningErrorCode
	}{
		{1, 0b0011, CommissioningTCMinVersionNotMet},
		{2, 0b0001, CommissioningRequiredTCNotAccepted},
		{3, 0b0111, CommissioningOK},
	}
	for _, tt := range tests {
		code, err := c.SetTCAcknowledgements(tt.version, tt.acks)
		if err != nil {
			t.Fatalf("SetTCAcknowledgements(%d, %b): %v", tt.version, tt.acks, err)
		}
		if code != tt.want {
			t.Errorf("SetTCAcknowledgements(%d, %b): expected %s, got %s", tt.version, tt.acks, tt.want, code)
		}
	}

	if !c.TCAccepted() {
		t.Error("expected terms accepted")
	}
	required, _ = read(t, c, AttrTCAcknowledgementsRequired)
	if !required.Equal(datamodel.BoolValue(false)) {
		t.Errorf("expected acknowledgements no longer required, got %v", required)
	}

	again := createTestCluster(FeatureTermsAndConditions, store)
	v, _ := read(t, again, AttrTCAcceptedVersion)
	if !v.Equal(datamodel.UintValue(3)) {
		t.Errorf("expected persisted version 3, got %v", v)
	}
}

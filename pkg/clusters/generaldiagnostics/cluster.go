// Package generaldiagnostics implements the General Diagnostics Cluster (0x0033).
//
// The cluster reports node health: reboot count, uptime, boot reason and
// active faults. Values come from a Provider supplied by the platform; the
// cluster cannot be built without one.
//
// This cluster is mandatory on the root endpoint (endpoint 0).
package generaldiagnostics

import (
	"context"
	"errors"

	"github.com/backkem/clusterhost/pkg/datamodel"
	"github.com/backkem/clusterhost/pkg/featuregate"
)

// Cluster constants.
const (
	ClusterID       datamodel.ClusterID = 0x0033
	ClusterRevision uint16              = 2
)

// Attribute IDs.
const (
	AttrNetworkInterfaces        datamodel.AttributeID = 0x0000
	AttrRebootCount              datamodel.AttributeID = 0x0001
	AttrUpTime                   datamodel.AttributeID = 0x0002
	AttrTotalOperationalHours    datamodel.AttributeID = 0x0003
	AttrBootReason               datamodel.AttributeID = 0x0004
	AttrActiveHardwareFaults     datamodel.AttributeID = 0x0005
	AttrActiveRadioFaults        datamodel.AttributeID = 0x0006
	AttrActiveNetworkFaults      datamodel.AttributeID = 0x0007
	AttrTestEventTriggersEnabled datamodel.AttributeID = 0x0008
)

// OptionalAttributes lists the attributes the feature gate may enable.
var OptionalAttributes = []datamodel.AttributeID{
	AttrTotalOperationalHours,
	AttrBootReason,
	AttrActiveHardwareFaults,
	AttrActiveRadioFaults,
	AttrActiveNetworkFaults,
}

// ErrProviderRequired is returned by New when no Provider is configured.
var ErrProviderRequired = errors.New("generaldiagnostics: provider required")

// BootReason is the reason for the most recent boot.
type BootReason uint8

const (
	BootReasonUnspecified             BootReason = 0
	BootReasonPowerOnReboot           BootReason = 1
	BootReasonBrownOutReset           BootReason = 2
	BootReasonSoftwareWatchdogReset   BootReason = 3
	BootReasonHardwareWatchdogReset   BootReason = 4
	BootReasonSoftwareUpdateCompleted BootReason = 5
	BootReasonSoftwareReset           BootReason = 6
)

// String returns the name of the boot reason.
func (b BootReason) String() string {
	switch b {
	case BootReasonUnspecified:
		return "Unspecified"
	case BootReasonPowerOnReboot:
		return "PowerOnReboot"
	case BootReasonBrownOutReset:
		return "BrownOutReset"
	case BootReasonSoftwareWatchdogReset:
		return "SoftwareWatchdogReset"
	case BootReasonHardwareWatchdogReset:
		return "HardwareWatchdogReset"
	case BootReasonSoftwareUpdateCompleted:
		return "SoftwareUpdateCompleted"
	case BootReasonSoftwareReset:
		return "SoftwareReset"
	default:
		return "Unknown"
	}
}

// Provider supplies diagnostic values.
type Provider interface {
	// RebootCount returns the number of reboots since factory reset.
	RebootCount() (uint16, error)

	// UpTime returns seconds since the last boot.
	UpTime() (uint64, error)

	// TotalOperationalHours returns the total powered-on hours.
	TotalOperationalHours() (uint32, error)

	// BootReason returns the reason for the last boot.
	BootReason() (BootReason, error)
}

// FaultReporter is optionally implemented by a Provider that tracks
// active faults. Without it the fault lists read empty.
type FaultReporter interface {
	ActiveHardwareFaults() []uint8
	ActiveRadioFaults() []uint8
	ActiveNetworkFaults() []uint8
}

// Config provides dependencies for the General Diagnostics cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to (should be 0).
	EndpointID datamodel.EndpointID

	// Features carries the optional attributes enabled on the endpoint.
	Features featuregate.Snapshot

	// Provider supplies the diagnostic values. Required.
	Provider Provider
}

// Cluster implements the General Diagnostics cluster (0x0033).
type Cluster struct {
	*datamodel.ClusterBase
	config Config
	faults FaultReporter

	attrList []datamodel.AttributeEntry
}

// New creates a new General Diagnostics cluster.
func New(cfg Config) (*Cluster, error) {
	if cfg.Provider == nil {
		return nil, ErrProviderRequired
	}

	c := &Cluster{
		ClusterBase: datamodel.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		config:      cfg,
	}
	c.faults, _ = cfg.Provider.(FaultReporter)
	c.attrList = c.buildAttributeList()
	return c, nil
}

func (c *Cluster) buildAttributeList() []datamodel.AttributeEntry {
	viewPriv := datamodel.PrivilegeView
	listQ := datamodel.AttrQualityList

	attrs := []datamodel.AttributeEntry{
		datamodel.NewReadOnlyAttribute(AttrNetworkInterfaces, listQ, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrRebootCount, datamodel.AttrQualityNonVolatile, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrUpTime, 0, viewPriv),
		datamodel.NewReadOnlyAttribute(AttrTestEventTriggersEnabled, 0, viewPriv),
	}

	optional := map[datamodel.AttributeID]datamodel.AttributeQuality{
		AttrTotalOperationalHours: datamodel.AttrQualityNonVolatile,
		AttrBootReason:            0,
		AttrActiveHardwareFaults:  listQ,
		AttrActiveRadioFaults:     listQ,
		AttrActiveNetworkFaults:   listQ,
	}
	for _, id := range OptionalAttributes {
		if c.config.Features.Has(id) {
			attrs = append(attrs, datamodel.NewReadOnlyAttribute(id, optional[id], viewPriv))
		}
	}

	return datamodel.MergeAttributeLists(attrs)
}

// AttributeList implements datamodel.ServerCluster.
func (c *Cluster) AttributeList(datamodel.ConcreteClusterPath) []datamodel.AttributeEntry {
	return c.attrList
}

// ReadAttribute implements datamodel.ServerCluster.
func (c *Cluster) ReadAttribute(ctx context.Context, path datamodel.ConcreteAttributePath) (datamodel.Value, error) {
	if v, ok := c.ReadGlobalAttribute(path.Attribute, c.attrList); ok {
		return v, nil
	}
	if datamodel.FindAttribute(c.attrList, path.Attribute) == nil {
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}

	p := c.config.Provider
	switch path.Attribute {
	case AttrNetworkInterfaces:
		return datamodel.ListValue(), nil
	case AttrRebootCount:
		n, err := p.RebootCount()
		return uintResult(uint64(n), err)
	case AttrUpTime:
		return uintResult(p.UpTime())
	case AttrTotalOperationalHours:
		h, err := p.TotalOperationalHours()
		return uintResult(uint64(h), err)
	case AttrBootReason:
		r, err := p.BootReason()
		return uintResult(uint64(r), err)
	case AttrActiveHardwareFaults:
		return c.faultList(FaultReporter.ActiveHardwareFaults), nil
	case AttrActiveRadioFaults:
		return c.faultList(FaultReporter.ActiveRadioFaults), nil
	case AttrActiveNetworkFaults:
		return c.faultList(FaultReporter.ActiveNetworkFaults), nil
	case AttrTestEventTriggersEnabled:
		return datamodel.BoolValue(false), nil
	default:
		return datamodel.Value{}, datamodel.ErrUnsupportedAttribute
	}
}

func uintResult(v uint64, err error) (datamodel.Value, error) {
	if err != nil {
		return datamodel.Value{}, err
	}
	return datamodel.UintValue(v), nil
}

func (c *Cluster) faultList(get func(FaultReporter) []uint8) datamodel.Value {
	if c.faults == nil {
		return datamodel.ListValue()
	}
	var items []datamodel.Value
	for _, f := range get(c.faults) {
		items = append(items, datamodel.UintValue(uint64(f)))
	}
	return datamodel.ListValue(items...)
}

var _ datamodel.ServerCluster = (*Cluster)(nil)

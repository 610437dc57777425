package generalcommissioning

import (
	"github.com/backkem/clusterhost/pkg/datamodel"
)

// Breadcrumb returns the current breadcrumb value.
func (c *Cluster) Breadcrumb() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.breadcrumb
}

// SetBreadcrumb sets the breadcrumb value. It is not persisted.
func (c *Cluster) SetBreadcrumb(value uint64) {
	c.mu.Lock()
	changed := c.breadcrumb != value
	c.breadcrumb = value
	c.mu.Unlock()

	if changed {
		c.NotifyAttributeChanged(c.attrPath(AttrBreadcrumb))
	}
}

// RegulatoryConfig returns the current regulatory configuration.
func (c *Cluster) RegulatoryConfig() RegulatoryLocationType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.regulatoryConfig
}

// allowedLocation reports whether loc fits the device's location capability.
// An IndoorOutdoor device accepts any location; otherwise only IndoorOutdoor
// or the capability itself are accepted.
func (c *Cluster) allowedLocation(loc RegulatoryLocationType) bool {
	if loc > RegulatoryIndoorOutdoor {
		return false
	}
	capability := c.config.LocationCapability
	return capability == RegulatoryIndoorOutdoor || loc == capability || loc == RegulatoryIndoorOutdoor
}

// SetRegulatoryConfig updates and persists RegulatoryConfig. A location
// outside the capability yields CommissioningValueOutsideRange and leaves
// the state untouched.
func (c *Cluster) SetRegulatoryConfig(loc RegulatoryLocationType) (CommissioningErrorCode, error) {
	if !c.allowedLocation(loc) {
		return CommissioningValueOutsideRange, nil
	}

	if err := c.persist(AttrRegulatoryConfig, datamodel.UintValue(uint64(loc))); err != nil {
		return CommissioningOK, err
	}

	c.mu.Lock()
	c.regulatoryConfig = loc
	c.mu.Unlock()

	c.NotifyAttributeChanged(c.attrPath(AttrRegulatoryConfig))
	return CommissioningOK, nil
}

// SetTCAcknowledgements records the commissioner's acceptance of the terms
// and conditions. Requires the TC feature.
func (c *Cluster) SetTCAcknowledgements(version, acknowledgements uint16) (CommissioningErrorCode, error) {
	if !c.hasTC() {
		return CommissioningOK, datamodel.ErrUnsupportedWrite
	}

	tc := c.config.TermsAndConditions
	if version < tc.MinRequiredVersion {
		return CommissioningTCMinVersionNotMet, nil
	}
	if acknowledgements&tc.RequiredAcknowledgements != tc.RequiredAcknowledgements {
		return CommissioningRequiredTCNotAccepted, nil
	}

	if err := c.persist(AttrTCAcceptedVersion, datamodel.UintValue(uint64(version))); err != nil {
		return CommissioningOK, err
	}
	if err := c.persist(AttrTCAcknowledgements, datamodel.UintValue(uint64(acknowledgements))); err != nil {
		return CommissioningOK, err
	}

	c.mu.Lock()
	c.tcAccepted = version
	c.tcAcks = acknowledgements
	c.mu.Unlock()

	c.NotifyAttributeChanged(c.attrPath(AttrTCAcceptedVersion))
	c.NotifyAttributeChanged(c.attrPath(AttrTCAcknowledgements))
	c.NotifyAttributeChanged(c.attrPath(AttrTCAcknowledgementsRequired))
	return CommissioningOK, nil
}

// TCAccepted reports whether the recorded acceptance satisfies the
// configured terms. Always true without the TC feature.
func (c *Cluster) TCAccepted() bool {
	if !c.hasTC() {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tcSatisfiedLocked()
}

func (c *Cluster) tcSatisfiedLocked() bool {
	tc := c.config.TermsAndConditions
	return c.tcAccepted >= tc.MinRequiredVersion &&
		c.tcAcks&tc.RequiredAcknowledgements == tc.RequiredAcknowledgements
}

// Shutdown implements datamodel.ServerCluster. Removal clears the
// persisted commissioning state.
func (c *Cluster) Shutdown(reason datamodel.ShutdownType) {
	if reason == datamodel.ShutdownRemoved && c.config.Storage != nil {
		for _, attr := range []datamodel.AttributeID{AttrRegulatoryConfig, AttrTCAcceptedVersion, AttrTCAcknowledgements} {
			_ = c.config.Storage.DeleteAttribute(c.attrPath(attr))
		}
	}
	c.ClusterBase.Shutdown(reason)
}

func (c *Cluster) persist(attr datamodel.AttributeID, v datamodel.Value) error {
	if c.config.Storage == nil {
		return nil
	}
	return c.config.Storage.WriteAttribute(c.attrPath(attr), v)
}

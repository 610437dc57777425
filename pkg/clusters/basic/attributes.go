package basic

import (
	"github.com/backkem/clusterhost/pkg/datamodel"
)

// SetNodeLabel updates and persists the NodeLabel attribute.
// Max length is 32 characters.
func (c *Cluster) SetNodeLabel(label string) error {
	if len(label) > maxNodeLabelLen {
		return datamodel.ErrConstraintError
	}

	if err := c.persist(AttrNodeLabel, datamodel.StringValue(label)); err != nil {
		return err
	}

	c.mu.Lock()
	c.nodeLabel = label
	c.mu.Unlock()

	c.NotifyAttributeChanged(c.attrPath(AttrNodeLabel))
	return nil
}

// SetLocation updates and persists the Location attribute.
// Must be exactly 2 characters (ISO 3166-1 alpha-2).
func (c *Cluster) SetLocation(location string) error {
	if len(location) != 2 {
		return datamodel.ErrConstraintError
	}

	if err := c.persist(AttrLocation, datamodel.StringValue(location)); err != nil {
		return err
	}

	c.mu.Lock()
	c.location = location
	c.mu.Unlock()

	c.NotifyAttributeChanged(c.attrPath(AttrLocation))
	return nil
}

// SetLocalConfigDisabled updates the LocalConfigDisabled attribute.
// Fails with ErrUnsupportedWrite when the attribute is not enabled.
func (c *Cluster) SetLocalConfigDisabled(disabled bool) error {
	if !c.config.Features.Has(AttrLocalConfigDisabled) {
		return datamodel.ErrUnsupportedWrite
	}

	if err := c.persist(AttrLocalConfigDisabled, datamodel.BoolValue(disabled)); err != nil {
		return err
	}

	c.mu.Lock()
	c.localConfigDisabled = disabled
	c.mu.Unlock()

	c.NotifyAttributeChanged(c.attrPath(AttrLocalConfigDisabled))
	return nil
}

// SetReachable updates the Reachable attribute. It is not persisted.
func (c *Cluster) SetReachable(reachable bool) {
	if !c.config.Features.Has(AttrReachable) {
		return
	}

	c.mu.Lock()
	changed := c.reachable != reachable
	c.reachable = reachable
	c.mu.Unlock()

	if changed {
		c.NotifyAttributeChanged(c.attrPath(AttrReachable))
	}
}

func (c *Cluster) persist(attr datamodel.AttributeID, v datamodel.Value) error {
	if c.config.Storage == nil {
		return nil
	}
	return c.config.Storage.WriteAttribute(c.attrPath(attr), v)
}

package onoff

import "github.com/backkem/clusterhost/pkg/datamodel"

// OnOff returns the current on/off state.
func (c *Cluster) OnOff() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onOff
}

// Off turns the output off.
func (c *Cluster) Off() {
	c.setOnOff(false)
}

// On turns the output on. Devices with the OffOnly feature reject it.
func (c *Cluster) On() error {
	if c.features&FeatureOffOnly != 0 {
		return datamodel.ErrInvalidInState
	}

	c.setOnOff(true)

	// When turning on with lighting feature
	if c.hasLighting() {
		c.mu.Lock()
		if c.onTime == 0 {
			c.offWaitTime = 0
		}
		c.globalSceneControl = true
		c.mu.Unlock()
	}
	return nil
}

// Toggle flips the output.
func (c *Cluster) Toggle() error {
	if c.OnOff() {
		c.Off()
		return nil
	}
	return c.On()
}

// setOnOff updates the state, persists it and notifies listeners when it
// changed.
func (c *Cluster) setOnOff(on bool) {
	c.mu.Lock()
	changed := c.onOff != on
	c.onOff = on
	c.mu.Unlock()

	if !changed {
		return
	}

	c.saveOnOff(on)
	c.NotifyAttributeChanged(c.attrPath(AttrOnOff))
	if c.config.OnStateChange != nil {
		c.config.OnStateChange(c.EndpointID(), on)
	}
}

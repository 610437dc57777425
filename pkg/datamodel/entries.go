package datamodel

// AttributeEntry describes an attribute's metadata.
type AttributeEntry struct {
	// ID is the attribute identifier.
	ID AttributeID

	// Quality contains the attribute quality flags.
	Quality AttributeQuality

	// ReadPrivilege is the minimum privilege required to read this attribute.
	// nil indicates the attribute is not readable.
	ReadPrivilege *Privilege

	// WritePrivilege is the minimum privilege required to write this attribute.
	// nil indicates the attribute is not writable.
	WritePrivilege *Privilege
}

// IsReadable returns true if the attribute can be read.
func (a *AttributeEntry) IsReadable() bool {
	return a.ReadPrivilege != nil
}

// IsWritable returns true if the attribute can be written.
func (a *AttributeEntry) IsWritable() bool {
	return a.WritePrivilege != nil
}

// HasQuality returns true if the attribute has the specified quality flag(s).
func (a *AttributeEntry) HasQuality(q AttributeQuality) bool {
	return a.Quality&q != 0
}

// DeviceTypeEntry describes a device type present on an endpoint.
type DeviceTypeEntry struct {
	DeviceTypeID DeviceTypeID
	Revision     uint8
}

// NewReadOnlyAttribute creates a read-only attribute entry.
func NewReadOnlyAttribute(id AttributeID, quality AttributeQuality, readPriv Privilege) AttributeEntry {
	return AttributeEntry{
		ID:            id,
		Quality:       quality,
		ReadPrivilege: &readPriv,
	}
}

// NewReadWriteAttribute creates a read-write attribute entry.
func NewReadWriteAttribute(id AttributeID, quality AttributeQuality, readPriv, writePriv Privilege) AttributeEntry {
	return AttributeEntry{
		ID:             id,
		Quality:        quality,
		ReadPrivilege:  &readPriv,
		WritePrivilege: &writePriv,
	}
}

// MergeAttributeLists combines cluster-specific attributes with global attributes.
func MergeAttributeLists(clusterAttrs []AttributeEntry) []AttributeEntry {
	globals := GlobalAttributeEntries()
	result := make([]AttributeEntry, 0, len(clusterAttrs)+len(globals))
	result = append(result, clusterAttrs...)
	result = append(result, globals...)
	return result
}

// FindAttribute searches an attribute list for a specific attribute ID.
// Returns nil if not found.
func FindAttribute(list []AttributeEntry, id AttributeID) *AttributeEntry {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

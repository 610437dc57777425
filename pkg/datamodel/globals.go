package datamodel

// Global attribute IDs are mandatory attributes present on every cluster instance.
const (
	// GlobalAttrClusterRevision (0xFFFD) indicates the cluster revision.
	GlobalAttrClusterRevision AttributeID = 0xFFFD

	// GlobalAttrFeatureMap (0xFFFC) indicates supported optional features.
	GlobalAttrFeatureMap AttributeID = 0xFFFC

	// GlobalAttrAttributeList (0xFFFB) lists all supported attribute IDs.
	GlobalAttrAttributeList AttributeID = 0xFFFB
)

// IsGlobalAttribute returns true if the attribute ID is one of the global
// attributes served by ClusterBase.
func IsGlobalAttribute(id AttributeID) bool {
	return id >= GlobalAttrAttributeList && id <= GlobalAttrClusterRevision
}

// GlobalAttributeEntries returns the standard global attribute entries.
func GlobalAttributeEntries() []AttributeEntry {
	return []AttributeEntry{
		NewReadOnlyAttribute(GlobalAttrClusterRevision, AttrQualityFixed, PrivilegeView),
		NewReadOnlyAttribute(GlobalAttrFeatureMap, AttrQualityFixed, PrivilegeView),
		NewReadOnlyAttribute(GlobalAttrAttributeList, AttrQualityFixed|AttrQualityList, PrivilegeView),
	}
}

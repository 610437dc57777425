// Package datamodel provides the foundational types for hosting Matter
// server clusters.
//
// It defines the identifiers and concrete paths used to address clusters,
// the ServerCluster interface every hosted handler implements, the Value
// type used for attribute data, and ClusterBase, which concrete clusters
// embed for global attribute handling and data version management.
package datamodel

// Privilege defines access privilege levels for ACL checks.
type Privilege int

const (
	// PrivilegeUnknown indicates an uninitialized or invalid privilege.
	PrivilegeUnknown Privilege = iota

	// PrivilegeView allows read access to attributes and events.
	PrivilegeView

	// PrivilegeOperate allows read/write/invoke access for normal operations.
	PrivilegeOperate

	// PrivilegeManage allows configuration and management operations.
	PrivilegeManage

	// PrivilegeAdminister allows full administrative control.
	PrivilegeAdminister
)

// String returns a human-readable name for the privilege level.
func (p Privilege) String() string {
	switch p {
	case PrivilegeView:
		return "View"
	case PrivilegeOperate:
		return "Operate"
	case PrivilegeManage:
		return "Manage"
	case PrivilegeAdminister:
		return "Administer"
	default:
		return "Unknown"
	}
}

// AttributeQuality defines quality flags for attributes.
type AttributeQuality uint32

const (
	// AttrQualityFixed indicates read-only data that rarely changes (F quality).
	AttrQualityFixed AttributeQuality = 1 << iota

	// AttrQualityDiagnostics indicates verbose diagnostics cluster data (K quality).
	AttrQualityDiagnostics

	// AttrQualityNonVolatile indicates persistent data across restarts (N quality).
	AttrQualityNonVolatile

	// AttrQualityNullable indicates the data type is nullable (X quality).
	AttrQualityNullable

	// AttrQualityList indicates this attribute is a list type.
	AttrQualityList
)

// ShutdownType tells a cluster why it is being unregistered.
type ShutdownType int

const (
	// ShutdownGraceful means the endpoint is being disabled or the node is
	// stopping. Persisted state must be kept.
	ShutdownGraceful ShutdownType = iota

	// ShutdownRemoved means the endpoint is being permanently removed.
	// Clusters should drop any persisted state they own.
	ShutdownRemoved
)

// String returns a human-readable name for the shutdown type.
func (s ShutdownType) String() string {
	switch s {
	case ShutdownGraceful:
		return "Graceful"
	case ShutdownRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

package matter

// NodeState represents the lifecycle state of a Node.
type NodeState int

const (
	// NodeStateUninitialized is the initial state before NewNode completes.
	NodeStateUninitialized NodeState = iota

	// NodeStateInitialized means the node is created but not started.
	NodeStateInitialized

	// NodeStateStarting means Start() is bringing endpoints up.
	NodeStateStarting

	// NodeStateRunning means every configured endpoint has been enabled.
	NodeStateRunning

	// NodeStateStopping means Stop() is taking endpoints down.
	NodeStateStopping

	// NodeStateStopped means the node has been shut down.
	NodeStateStopped
)

// String returns a human-readable name for the state.
func (s NodeState) String() string {
	switch s {
	case NodeStateUninitialized:
		return "Uninitialized"
	case NodeStateInitialized:
		return "Initialized"
	case NodeStateStarting:
		return "Starting"
	case NodeStateRunning:
		return "Running"
	case NodeStateStopping:
		return "Stopping"
	case NodeStateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsRunning returns true if the node is in an operational state.
func (s NodeState) IsRunning() bool {
	return s == NodeStateRunning
}

// CanStart returns true if Start() can be called in this state.
func (s NodeState) CanStart() bool {
	return s == NodeStateInitialized
}

// CanStop returns true if Stop() can be called in this state.
func (s NodeState) CanStop() bool {
	return s.IsRunning() || s == NodeStateStarting
}

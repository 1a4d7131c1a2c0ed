package conductor

// State is the conductor's lifecycle phase. Transitions are restricted to
// Uninitialized → Initializing → {Running | Uninitialized}, and from any
// state to Shutdown. Shutdown is terminal and idempotent to re-enter.
type State int32

const (
	// StateUninitialized is the starting state; only a handshake request can
	// leave it.
	StateUninitialized State = iota
	// StateInitializing covers component instantiation and connection during
	// the handshake.
	StateInitializing
	// StateRunning is the normal routing state.
	StateRunning
	// StateShutdown is terminal.
	StateShutdown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

package engine

// State is the orchestrator's position in a run.
type State int32

// Run states.
const (
	StateIdle State = iota
	StateDiscovering
	StateLinting
	StateFixing
	StateReporting
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateLinting:
		return "linting"
	case StateFixing:
		return "fixing"
	case StateReporting:
		return "reporting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// State returns the state of the current or most recent run.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

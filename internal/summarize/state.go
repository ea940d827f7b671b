package summarize

// State is a step of a summarization run.
type State int

const (
	StateIdle State = iota
	StateDirect
	StateMapping
	StateReducing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDirect:
		return "direct"
	case StateMapping:
		return "mapping"
	case StateReducing:
		return "reducing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event describes a state transition or a completed generator call.
type Event struct {
	State  State
	Chunks int // chunks the document was split into
	Mapped int // chunk summaries finished so far
	Calls  int // generator calls issued so far
	Level  int // reduction level, 0 outside the reduce phase
	Err    error
}

// Observer receives events in order. Calls are serialized per run.
type Observer func(Event)

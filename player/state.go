package player

// State is where a session is in its life cycle.
type State int

const (
	NotRunning State = iota
	Opening
	Open
	Pending
	Loading
	Playing
	Paused
	Shutdown
)

var stateNames = [...]string{
	NotRunning: "not running",
	Opening:    "opening",
	Open:       "open",
	Pending:    "pending",
	Loading:    "loading",
	Playing:    "playing",
	Paused:     "paused",
	Shutdown:   "shutdown",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Running reports whether an engine process belongs to the state.
func (s State) Running() bool {
	switch s {
	case Opening, Loading, Playing, Paused, Shutdown:
		return true
	default:
		return false
	}
}

// in reports whether s is one of states.
func (s State) in(states ...State) bool {
	for _, other := range states {
		if s == other {
			return true
		}
	}
	return false
}

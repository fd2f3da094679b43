package workflow

// State is a status value tracked by a state machine
type State string

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// StateSet is the closed set of states a machine definition accepts
type StateSet map[State]bool

// NewStateSet builds a StateSet from the given states
func NewStateSet(states ...State) StateSet {
	set := make(StateSet, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}

// Contains reports whether s belongs to the set
func (set StateSet) Contains(s State) bool {
	return set[s]
}

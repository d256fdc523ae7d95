package workflow

// State represents a position in the approval stage sequence
type State string

const (
	StateLMRO      State = "lmro"
	StateDLMRO     State = "dlmro"
	StateCEO       State = "ceo"
	StateCompleted State = "completed"
	StateRejected  State = "rejected"
)

var validStates = map[State]bool{
	StateLMRO:      true,
	StateDLMRO:     true,
	StateCEO:       true,
	StateCompleted: true,
	StateRejected:  true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateRejected:  true,
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a known approval state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

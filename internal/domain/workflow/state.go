package workflow

// State represents a stage in the vale lifecycle
type State string

const (
	StateDraft     State = "DRAFT"
	StateIssued    State = "ISSUED"
	StateInProcess State = "IN_PROCESS"
	StateCompleted State = "COMPLETED"
	StateVerified  State = "VERIFIED"
	StatePaid      State = "PAID"
)

var validStates = map[State]bool{
	StateDraft:     true,
	StateIssued:    true,
	StateInProcess: true,
	StateCompleted: true,
	StateVerified:  true,
	StatePaid:      true,
}

// Paid is the only terminal state; VERIFIED still advances to PAID through
// the administrative path.
var terminalStates = map[State]bool{
	StatePaid: true,
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is part of the vale lifecycle
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

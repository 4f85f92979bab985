package room

import "fmt"

// State is a room lifecycle state
type State int32

// Room states, in lifecycle order
const (
	StateEmpty State = iota
	StateWaiting
	StateCountdown
	StateRunning
	StateFinished
	StateDisposed
)

var stateNames = [...]string{"empty", "waiting", "countdown", "running", "finished", "disposed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// MarshalText renders the state name in deltas
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown room state %q", text)
}

// legalTransitions lists every allowed edge. Empty may go straight to
// Disposed when a room idles out or is shut down before anyone joins.
var legalTransitions = map[State][]State{
	StateEmpty:     {StateWaiting, StateDisposed},
	StateWaiting:   {StateCountdown, StateDisposed},
	StateCountdown: {StateRunning, StateDisposed},
	StateRunning:   {StateFinished},
	StateFinished:  {StateDisposed},
}

// CanTransition reports whether from -> to is a legal edge
func CanTransition(from, to State) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition records one state change
type Transition struct {
	From State  `json:"from"`
	To   State  `json:"to"`
	Tick uint64 `json:"tick"`
}

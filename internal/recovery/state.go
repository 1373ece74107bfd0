package recovery

import (
	"errors"
	"time"
)

// State is the controller's lifecycle state.
type State string

const (
	// StateHealthy means the wrapped subtree rendered normally.
	StateHealthy State = "healthy"
	// StateFailed means a failure was captured and no automatic retry
	// is pending; the recovery surface is shown until a manual action.
	StateFailed State = "failed"
	// StateRetryScheduled means a failure was captured and exactly one
	// automatic retry timer is pending.
	StateRetryScheduled State = "retry_scheduled"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	StateHealthy:        {StateFailed},
	StateFailed:         {StateRetryScheduled, StateHealthy},
	StateRetryScheduled: {StateHealthy},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}

	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

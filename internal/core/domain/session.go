package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionState is a step of one discovery-to-write cycle.
type SessionState string

const (
	SessionIdle       SessionState = "IDLE"
	SessionDiscovered SessionState = "DISCOVERED"
	SessionRead       SessionState = "READ"
	SessionVerified   SessionState = "VERIFIED"
	SessionMutated    SessionState = "MUTATED"
	SessionWritten    SessionState = "WRITTEN"
)

var sessionTransitions = map[SessionState][]SessionState{
	SessionIdle:       {SessionDiscovered},
	SessionDiscovered: {SessionRead, SessionIdle},
	SessionRead:       {SessionVerified, SessionIdle},
	SessionVerified:   {SessionMutated, SessionIdle},
	SessionMutated:    {SessionWritten, SessionIdle},
	SessionWritten:    {SessionIdle},
}

// CanTransition reports whether from -> to is a legal step.
func CanTransition(from, to SessionState) bool {
	for _, s := range sessionTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SessionMachine tracks the state of the current session. It is owned by a
// single goroutine for the lifetime of a session and is not safe for
// concurrent use.
type SessionMachine struct {
	state SessionState
}

// NewSessionMachine returns a machine in the Idle state.
func NewSessionMachine() *SessionMachine {
	return &SessionMachine{state: SessionIdle}
}

// State returns the current state.
func (m *SessionMachine) State() SessionState {
	return m.state
}

// Transition moves to the next state or returns ErrIllegalTransition.
func (m *SessionMachine) Transition(to SessionState) error {
	if !CanTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.state, to)
	}
	m.state = to
	return nil
}

// Reset returns the machine to Idle from any state.
func (m *SessionMachine) Reset() {
	m.state = SessionIdle
}

// RejectReason is the user-facing category of a failed session. Anything
// that is neither a business rejection nor a hardware fault collapses to
// InvalidTag so the UI cannot tell a forged tag from a corrupted one.
// TagFull is only reported for a verified record whose new envelope would
// not fit the tag.
type RejectReason string

const (
	RejectInvalidTag          RejectReason = "INVALID_TAG"
	RejectInsufficientBalance RejectReason = "INSUFFICIENT_BALANCE"
	RejectHardwareError       RejectReason = "HARDWARE_ERROR"
	RejectTagFull             RejectReason = "TAG_FULL"
)

// Consumes reports whether a rejection ends the armed operation. Business
// rejections and writes of unknown outcome consume it; an unreadable,
// foreign or stale tag leaves it armed for the next tap.
func (r *Rejection) Consumes() bool {
	switch {
	case r.RereadRequired:
		return true
	case r.Reason == RejectInsufficientBalance, r.Reason == RejectTagFull:
		return true
	default:
		return false
	}
}

// Rejection is delivered to the UI when a session fails.
type Rejection struct {
	SessionID      uuid.UUID     `json:"session_id"`
	Operation      OperationKind `json:"operation"`
	Reason         RejectReason  `json:"reason"`
	Shortfall      uint64        `json:"shortfall,omitempty"`
	Balance        uint64        `json:"balance,omitempty"`
	RereadRequired bool          `json:"reread_required,omitempty"`
	Cause          error         `json:"-"` // logged, never shown
}

// Outcome is the result of one HandleTag call. Exactly one of Receipt and
// Rejection is set.
type Outcome struct {
	SessionID uuid.UUID  `json:"session_id"`
	Customer  *Customer  `json:"customer,omitempty"`
	Receipt   *Receipt   `json:"receipt,omitempty"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

// Accepted reports whether the session committed.
func (o *Outcome) Accepted() bool {
	return o.Rejection == nil
}

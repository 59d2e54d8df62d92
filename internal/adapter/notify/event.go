package notify

import (
	"time"

	"tag-wallet/internal/core/domain"
)

// Event types published to outside consumers.
const (
	EventTagAccepted = "TAG_ACCEPTED"
	EventTagRejected = "TAG_REJECTED"
)

// Event is the outward shape of a session outcome. It never carries the tag
// identity; consumers correlate on session_id.
type Event struct {
	EventType      string               `json:"event_type"`
	TerminalID     string               `json:"terminal_id"`
	SessionID      string               `json:"session_id"`
	Operation      domain.OperationKind `json:"operation"`
	Items          []domain.LineItem    `json:"items,omitempty"`
	Total          uint64               `json:"total"`
	Balance        uint64               `json:"balance"`
	Generation     uint32               `json:"generation,omitempty"`
	Reason         domain.RejectReason  `json:"reason,omitempty"`
	Shortfall      uint64               `json:"shortfall,omitempty"`
	RereadRequired bool                 `json:"reread_required,omitempty"`
	Timestamp      int64                `json:"timestamp"`
}

// AcceptedEvent builds the event for a committed session.
func AcceptedEvent(terminalID string, o *domain.Outcome) Event {
	ev := Event{
		EventType:  EventTagAccepted,
		TerminalID: terminalID,
		SessionID:  o.SessionID.String(),
		Timestamp:  time.Now().Unix(),
	}
	if r := o.Receipt; r != nil {
		ev.Operation = r.Kind
		ev.Items = r.Items
		ev.Total = r.Total
		ev.Balance = r.Balance
		ev.Generation = r.Generation
		if !r.CreatedAt.IsZero() {
			ev.Timestamp = r.CreatedAt.Unix()
		}
	}
	return ev
}

// RejectedEvent builds the event for a failed session.
func RejectedEvent(terminalID string, r *domain.Rejection) Event {
	return Event{
		EventType:      EventTagRejected,
		TerminalID:     terminalID,
		SessionID:      r.SessionID.String(),
		Operation:      r.Operation,
		Reason:         r.Reason,
		Balance:        r.Balance,
		Shortfall:      r.Shortfall,
		RereadRequired: r.RereadRequired,
		Timestamp:      time.Now().Unix(),
	}
}

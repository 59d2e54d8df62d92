package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalStatus is the terminal result of a journaled session.
type JournalStatus string

const (
	JournalStatusAccepted JournalStatus = "ACCEPTED"
	JournalStatusRejected JournalStatus = "REJECTED"
)

// JournalEntry is the terminal-side copy of a session outcome. It is an
// audit trail only; the tag remains the record of truth.
type JournalEntry struct {
	ID                uuid.UUID     `json:"id"`
	SessionID         uuid.UUID     `json:"session_id"`
	Operation         OperationKind `json:"operation"`
	Status            JournalStatus `json:"status"`
	IdentityEncrypted string        `json:"-"` // AES-256-GCM, hex
	Total             int64         `json:"total"`
	Balance           int64         `json:"balance"`
	Generation        int64         `json:"generation"`
	Reason            *string       `json:"reason,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

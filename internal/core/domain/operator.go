package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperatorStatus represents the state of an operator account.
type OperatorStatus string

const (
	OperatorStatusActive   OperatorStatus = "ACTIVE"
	OperatorStatusDisabled OperatorStatus = "DISABLED"
)

// Operator is a person allowed to run the terminal.
type Operator struct {
	ID        uuid.UUID      `json:"id"`
	Username  string         `json:"username"`
	PINHash   string         `json:"-"` // argon2id, never expose
	Role      Role           `json:"role"`
	Status    OperatorStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsActive returns true if the operator may log in.
func (o *Operator) IsActive() bool {
	return o.Status == OperatorStatusActive
}

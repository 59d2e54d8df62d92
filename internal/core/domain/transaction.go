package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperationKind identifies what a session does to the tag.
type OperationKind string

const (
	OperationPurchase OperationKind = "PURCHASE"
	OperationRecharge OperationKind = "RECHARGE"
	OperationErase    OperationKind = "ERASE"
	OperationIssue    OperationKind = "ISSUE"
	OperationInspect  OperationKind = "INSPECT"
)

// Role is an operator's privilege level.
type Role string

const (
	RoleCashier    Role = "CASHIER"
	RoleSupervisor Role = "SUPERVISOR"
)

// Authorization records who approved a privileged operation.
type Authorization struct {
	OperatorID uuid.UUID `json:"operator_id"`
	Role       Role      `json:"role"`
}

// IsSupervisor reports whether the authorization may erase or issue tags.
func (a *Authorization) IsSupervisor() bool {
	return a != nil && a.Role == RoleSupervisor
}

// Operation is the request armed on a terminal before a tag is presented.
type Operation struct {
	Kind   OperationKind  `json:"kind"`
	Items  []LineItem     `json:"items,omitempty"`  // purchase, prices already resolved
	Amount uint64         `json:"amount,omitempty"` // recharge
	Auth   *Authorization `json:"auth,omitempty"`
}

// Mutates reports whether the operation writes the tag.
func (o Operation) Mutates() bool {
	return o.Kind != OperationInspect
}

// Receipt summarizes a committed operation.
type Receipt struct {
	SessionID  uuid.UUID     `json:"session_id"`
	Kind       OperationKind `json:"kind"`
	Items      []LineItem    `json:"items,omitempty"`
	Total      uint64        `json:"total"`
	Balance    uint64        `json:"balance"`
	Generation uint32        `json:"generation"`
	CreatedAt  time.Time     `json:"created_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited operator action.
type AuditAction string

const (
	AuditActionLogin       AuditAction = "LOGIN"
	AuditActionArmPurchase AuditAction = "ARM_PURCHASE"
	AuditActionArmRecharge AuditAction = "ARM_RECHARGE"
	AuditActionArmErase    AuditAction = "ARM_ERASE"
	AuditActionArmIssue    AuditAction = "ARM_ISSUE"
	AuditActionArmInspect  AuditAction = "ARM_INSPECT"
	AuditActionDisarm      AuditAction = "DISARM"
	AuditActionTap         AuditAction = "TAP"
)

// AuditLog records a single operator action on the terminal.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	OperatorID   *uuid.UUID  `json:"operator_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

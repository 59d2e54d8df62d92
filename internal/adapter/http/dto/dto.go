package dto

import (
	"time"

	"tag-wallet/internal/core/domain"
)

// LoginRequest is the request body for operator login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	PIN      string `json:"pin" binding:"required,pin"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// ProductResponse is one catalog entry.
type ProductResponse struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Price uint32 `json:"price"`
}

// CartItem is one product selection on the order screen.
type CartItem struct {
	ProductID uint16 `json:"product_id"`
	Quantity  uint16 `json:"quantity" binding:"required,gt=0"`
}

// PurchaseRequest arms a purchase of the selected products.
type PurchaseRequest struct {
	Items []CartItem `json:"items" binding:"required,min=1,dive"`
}

// RechargeRequest arms a recharge. Zero is a valid amount.
type RechargeRequest struct {
	Amount *uint64 `json:"amount" binding:"required"`
}

// ArmedResponse describes the operation waiting for a tag.
type ArmedResponse struct {
	Kind   domain.OperationKind `json:"kind"`
	Items  []domain.LineItem    `json:"items,omitempty"`
	Total  uint64               `json:"total,omitempty"`
	Amount uint64               `json:"amount,omitempty"`
}

// SessionResponse is the terminal's current state.
type SessionResponse struct {
	State       domain.SessionState `json:"state"`
	Armed       *ArmedResponse      `json:"armed,omitempty"`
	LastOutcome *OutcomeResponse    `json:"last_outcome,omitempty"`
}

// RecordResponse is the verified tag record shown on the receipt screen.
type RecordResponse struct {
	Identity string            `json:"identity"` // hex
	Balance  uint64            `json:"balance"`
	History  []domain.LineItem `json:"history"`
}

// ReceiptResponse summarizes a committed session.
type ReceiptResponse struct {
	Kind       domain.OperationKind `json:"kind"`
	Items      []domain.LineItem    `json:"items,omitempty"`
	Total      uint64               `json:"total"`
	Balance    uint64               `json:"balance"`
	Generation uint32               `json:"generation"`
	CreatedAt  string               `json:"created_at"`
}

// RejectionResponse carries what the UI may show for a failed session.
type RejectionResponse struct {
	Reason         domain.RejectReason `json:"reason"`
	Shortfall      uint64              `json:"shortfall,omitempty"`
	Balance        uint64              `json:"balance,omitempty"`
	RereadRequired bool                `json:"reread_required,omitempty"`
	OfferRecharge  bool                `json:"offer_recharge,omitempty"`
}

// OutcomeResponse is the result of one tag session.
type OutcomeResponse struct {
	SessionID string             `json:"session_id"`
	Accepted  bool               `json:"accepted"`
	Record    *RecordResponse    `json:"record,omitempty"`
	Receipt   *ReceiptResponse   `json:"receipt,omitempty"`
	Rejection *RejectionResponse `json:"rejection,omitempty"`
}

// NewArmedResponse converts an armed operation.
func NewArmedResponse(op domain.Operation) *ArmedResponse {
	resp := &ArmedResponse{Kind: op.Kind, Items: op.Items, Amount: op.Amount}
	if total, err := domain.Total(op.Items); err == nil {
		resp.Total = total
	}
	return resp
}

// NewOutcomeResponse converts a session outcome. It returns nil for nil.
func NewOutcomeResponse(o *domain.Outcome) *OutcomeResponse {
	if o == nil {
		return nil
	}
	resp := &OutcomeResponse{
		SessionID: o.SessionID.String(),
		Accepted:  o.Accepted(),
	}
	if c := o.Customer; c != nil {
		history := c.Items
		if history == nil {
			history = []domain.LineItem{}
		}
		resp.Record = &RecordResponse{Identity: c.IdentityHex(), Balance: c.Balance, History: history}
	}
	if r := o.Receipt; r != nil {
		resp.Receipt = &ReceiptResponse{
			Kind:       r.Kind,
			Items:      r.Items,
			Total:      r.Total,
			Balance:    r.Balance,
			Generation: r.Generation,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		}
	}
	if r := o.Rejection; r != nil {
		resp.Rejection = &RejectionResponse{
			Reason:         r.Reason,
			Shortfall:      r.Shortfall,
			Balance:        r.Balance,
			RereadRequired: r.RereadRequired,
			OfferRecharge:  r.Reason == domain.RejectInsufficientBalance,
		}
	}
	return resp
}

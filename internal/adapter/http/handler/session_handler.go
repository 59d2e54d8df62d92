package handler

import (
	"math"

	"tag-wallet/internal/adapter/http/dto"
	"tag-wallet/internal/adapter/http/middleware"
	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"
	"tag-wallet/pkg/apperror"
	"tag-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionHandler arms and inspects the terminal's pending operation.
type SessionHandler struct {
	terminal ports.Terminal
	cart     ports.CartService
	// recharges above this amount need a supervisor
	rechargeConfirmThreshold uint64
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(terminal ports.Terminal, cart ports.CartService, rechargeConfirmThreshold uint64) *SessionHandler {
	return &SessionHandler{
		terminal:                 terminal,
		cart:                     cart,
		rechargeConfirmThreshold: rechargeConfirmThreshold,
	}
}

// ArmPurchase handles POST /api/v1/sessions/purchase.
func (h *SessionHandler) ArmPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	selection := make(map[uint16]uint16, len(req.Items))
	for _, it := range req.Items {
		sum := uint32(selection[it.ProductID]) + uint32(it.Quantity)
		if sum > math.MaxUint16 {
			response.Error(c, apperror.Validation("Quantity too large"))
			return
		}
		selection[it.ProductID] = uint16(sum)
	}

	items, err := h.cart.ResolveCart(c.Request.Context(), selection)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.arm(c, domain.Operation{
		Kind:  domain.OperationPurchase,
		Items: items,
		Auth:  middleware.Authorization(c),
	})
}

// ArmRecharge handles POST /api/v1/sessions/recharge.
func (h *SessionHandler) ArmRecharge(c *gin.Context) {
	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	auth := middleware.Authorization(c)
	if *req.Amount > h.rechargeConfirmThreshold && !auth.IsSupervisor() {
		response.Error(c, apperror.ErrForbidden())
		return
	}

	h.arm(c, domain.Operation{
		Kind:   domain.OperationRecharge,
		Amount: *req.Amount,
		Auth:   auth,
	})
}

// ArmErase handles POST /api/v1/sessions/erase.
func (h *SessionHandler) ArmErase(c *gin.Context) {
	h.arm(c, domain.Operation{Kind: domain.OperationErase, Auth: middleware.Authorization(c)})
}

// ArmIssue handles POST /api/v1/sessions/issue.
func (h *SessionHandler) ArmIssue(c *gin.Context) {
	h.arm(c, domain.Operation{Kind: domain.OperationIssue, Auth: middleware.Authorization(c)})
}

// ArmInspect handles POST /api/v1/sessions/inspect.
func (h *SessionHandler) ArmInspect(c *gin.Context) {
	h.arm(c, domain.Operation{Kind: domain.OperationInspect, Auth: middleware.Authorization(c)})
}

// Disarm handles DELETE /api/v1/sessions.
func (h *SessionHandler) Disarm(c *gin.Context) {
	h.terminal.Disarm()
	response.OK(c, h.current())
}

// Current handles GET /api/v1/sessions/current.
func (h *SessionHandler) Current(c *gin.Context) {
	response.OK(c, h.current())
}

func (h *SessionHandler) arm(c *gin.Context, op domain.Operation) {
	if err := h.terminal.Arm(op); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.NewArmedResponse(op))
}

func (h *SessionHandler) current() dto.SessionResponse {
	resp := dto.SessionResponse{
		State:       h.terminal.State(),
		LastOutcome: dto.NewOutcomeResponse(h.terminal.LastOutcome()),
	}
	if op, ok := h.terminal.Armed(); ok {
		resp.Armed = dto.NewArmedResponse(op)
	}
	return resp
}

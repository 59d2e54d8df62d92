package handler

import (
	"context"

	"tag-wallet/internal/adapter/http/dto"
	"tag-wallet/internal/core/ports"
	"tag-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReaderHandler delivers discovery events for the attached reader.
type ReaderHandler struct {
	terminal ports.Terminal
	device   ports.TagDevice
}

// NewReaderHandler creates a new ReaderHandler.
func NewReaderHandler(terminal ports.Terminal, device ports.TagDevice) *ReaderHandler {
	return &ReaderHandler{terminal: terminal, device: device}
}

// Tap handles POST /api/v1/reader/tap. A rejected session is still a 200:
// the outcome is the payload. Errors are returned only when no session ran.
func (h *ReaderHandler) Tap(c *gin.Context) {
	// A client hanging up must not cut a tag write short; the device
	// timeouts still bound the session.
	ctx := context.WithoutCancel(c.Request.Context())

	outcome, err := h.terminal.HandleTag(ctx, h.device)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewOutcomeResponse(outcome))
}

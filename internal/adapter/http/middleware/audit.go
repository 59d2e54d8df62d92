package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful operator writes after the handler ran. Taps
// are recorded whatever their outcome since a rejected tag is still an
// operator action.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var operatorID *uuid.UUID
		if auth := Authorization(c); auth != nil {
			operatorID = &auth.OperatorID
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			OperatorID:   operatorID,
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	switch {
	case path == "/api/v1/auth/login" && method == http.MethodPost:
		return domain.AuditActionLogin, "operator"
	case path == "/api/v1/sessions/purchase" && method == http.MethodPost:
		return domain.AuditActionArmPurchase, "session"
	case path == "/api/v1/sessions/recharge" && method == http.MethodPost:
		return domain.AuditActionArmRecharge, "session"
	case path == "/api/v1/sessions/erase" && method == http.MethodPost:
		return domain.AuditActionArmErase, "session"
	case path == "/api/v1/sessions/issue" && method == http.MethodPost:
		return domain.AuditActionArmIssue, "session"
	case path == "/api/v1/sessions/inspect" && method == http.MethodPost:
		return domain.AuditActionArmInspect, "session"
	case path == "/api/v1/sessions" && method == http.MethodDelete:
		return domain.AuditActionDisarm, "session"
	case path == "/api/v1/reader/tap" && method == http.MethodPost:
		return domain.AuditActionTap, "tag"
	}
	return "", ""
}

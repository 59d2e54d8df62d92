package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tag-wallet/internal/core/domain"
	"tag-wallet/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_ArmErase(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)
	opID := uuid.New()

	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, log *domain.AuditLog) {
			assert.Equal(t, domain.AuditActionArmErase, log.Action)
			assert.Equal(t, "session", log.ResourceType)
			require.NotNil(t, log.OperatorID)
			assert.Equal(t, opID, *log.OperatorID)
			assert.Contains(t, log.Details, `"status":202`)
		},
	)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/sessions/erase", func(c *gin.Context) {
		c.Set(CtxOperatorID, opID)
		c.Set(CtxRole, domain.RoleSupervisor)
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/erase", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestAuditLog_SkipsGET(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/sessions/current", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/sessions/issue", func(c *gin.Context) { c.Status(http.StatusForbidden) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/issue", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMapPathToAction(t *testing.T) {
	tests := []struct {
		path, method string
		action       domain.AuditAction
		resource     string
	}{
		{"/api/v1/auth/login", http.MethodPost, domain.AuditActionLogin, "operator"},
		{"/api/v1/sessions/purchase", http.MethodPost, domain.AuditActionArmPurchase, "session"},
		{"/api/v1/sessions/recharge", http.MethodPost, domain.AuditActionArmRecharge, "session"},
		{"/api/v1/sessions/inspect", http.MethodPost, domain.AuditActionArmInspect, "session"},
		{"/api/v1/sessions", http.MethodDelete, domain.AuditActionDisarm, "session"},
		{"/api/v1/reader/tap", http.MethodPost, domain.AuditActionTap, "tag"},
		{"/api/v1/products", http.MethodPost, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			action, resource := mapPathToAction(tt.path, tt.method)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.resource, resource)
		})
	}
}

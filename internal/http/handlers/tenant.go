package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type TenantHandler struct {
	tenants services.TenantService
}

func NewTenantHandler(tenants services.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// GET /api/tenant
func (h *TenantHandler) GetTenant(c *gin.Context) {
	t, err := h.tenants.Get(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, "get_tenant_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"tenant": t})
}

// PATCH /api/tenant
func (h *TenantHandler) UpdateSettings(c *gin.Context) {
	var req services.TenantSettings
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tenants.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "update_tenant_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"tenant": t})
}

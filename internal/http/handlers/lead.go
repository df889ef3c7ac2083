package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type LeadHandler struct {
	leads services.LeadService
}

func NewLeadHandler(leads services.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// POST /api/leads
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req services.LeadInput
	if !bindJSON(c, &req) {
		return
	}
	lead, err := h.leads.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "create_lead_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"lead": lead})
}

// GET /api/leads?status=&source=&q=
func (h *LeadHandler) ListLeads(c *gin.Context) {
	limit, offset := pageParams(c)
	leads, total, err := h.leads.List(c.Request.Context(), repos.LeadFilter{
		Status: c.Query("status"),
		Source: c.Query("source"),
		Search: c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.RespondAPIError(c, "list_leads_failed", err)
		return
	}
	response.RespondList(c, leads, total, limit, offset)
}

// GET /api/leads/:id
func (h *LeadHandler) GetLead(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_lead_id")
	if !ok {
		return
	}
	lead, err := h.leads.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_lead_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"lead": lead})
}

// PATCH /api/leads/:id
func (h *LeadHandler) UpdateLead(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_lead_id")
	if !ok {
		return
	}
	var req services.LeadPatch
	if !bindJSON(c, &req) {
		return
	}
	lead, err := h.leads.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondAPIError(c, "update_lead_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"lead": lead})
}

// POST /api/leads/:id/status
func (h *LeadHandler) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_lead_id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	lead, err := h.leads.ChangeStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.RespondAPIError(c, "change_lead_status_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"lead": lead})
}

// POST /api/leads/:id/convert
func (h *LeadHandler) ConvertLead(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_lead_id")
	if !ok {
		return
	}
	var req services.ConvertLeadInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	lead, opp, err := h.leads.Convert(c.Request.Context(), id, req)
	if err != nil {
		response.RespondAPIError(c, "convert_lead_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"lead": lead, "opportunity": opp})
}

// DELETE /api/leads/:id
func (h *LeadHandler) DeleteLead(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_lead_id")
	if !ok {
		return
	}
	if err := h.leads.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, "delete_lead_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

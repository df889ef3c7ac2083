package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type OpportunityHandler struct {
	opps services.OpportunityService
}

func NewOpportunityHandler(opps services.OpportunityService) *OpportunityHandler {
	return &OpportunityHandler{opps: opps}
}

// POST /api/opportunities
func (h *OpportunityHandler) CreateOpportunity(c *gin.Context) {
	var req services.OpportunityInput
	if !bindJSON(c, &req) {
		return
	}
	opp, err := h.opps.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "create_opportunity_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"opportunity": opp})
}

// GET /api/opportunities?stage=&lead_id=
func (h *OpportunityHandler) ListOpportunities(c *gin.Context) {
	leadID, err := queryUUID(c, "lead_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_lead_id", err)
		return
	}
	limit, offset := pageParams(c)
	opps, total, err := h.opps.List(c.Request.Context(), repos.OpportunityFilter{
		Stage:  c.Query("stage"),
		LeadID: leadID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.RespondAPIError(c, "list_opportunities_failed", err)
		return
	}
	response.RespondList(c, opps, total, limit, offset)
}

// GET /api/opportunities/:id
func (h *OpportunityHandler) GetOpportunity(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_opportunity_id")
	if !ok {
		return
	}
	opp, err := h.opps.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_opportunity_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"opportunity": opp})
}

// PATCH /api/opportunities/:id
func (h *OpportunityHandler) UpdateOpportunity(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_opportunity_id")
	if !ok {
		return
	}
	var req services.OpportunityPatch
	if !bindJSON(c, &req) {
		return
	}
	opp, err := h.opps.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondAPIError(c, "update_opportunity_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"opportunity": opp})
}

// POST /api/opportunities/:id/stage
func (h *OpportunityHandler) MoveStage(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_opportunity_id")
	if !ok {
		return
	}
	var req struct {
		Stage      string `json:"stage" binding:"required"`
		LostReason string `json:"lost_reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	opp, err := h.opps.MoveStage(c.Request.Context(), id, req.Stage, req.LostReason)
	if err != nil {
		response.RespondAPIError(c, "move_stage_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"opportunity": opp})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type PricingRuleHandler struct {
	rules services.PricingRuleService
}

func NewPricingRuleHandler(rules services.PricingRuleService) *PricingRuleHandler {
	return &PricingRuleHandler{rules: rules}
}

// GET /api/pricing-rules?space_id=
func (h *PricingRuleHandler) ListRules(c *gin.Context) {
	spaceID, err := queryUUID(c, "space_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_space_id", err)
		return
	}
	rules, err := h.rules.List(c.Request.Context(), spaceID)
	if err != nil {
		response.RespondAPIError(c, "list_pricing_rules_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"rules": rules})
}

// POST /api/pricing-rules
func (h *PricingRuleHandler) CreateRule(c *gin.Context) {
	var req services.PricingRuleInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.rules.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "create_pricing_rule_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"rule": r})
}

// PUT /api/pricing-rules/:id
func (h *PricingRuleHandler) UpdateRule(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_rule_id")
	if !ok {
		return
	}
	var req services.PricingRuleInput
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.rules.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondAPIError(c, "update_pricing_rule_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"rule": r})
}

// DELETE /api/pricing-rules/:id
func (h *PricingRuleHandler) DeleteRule(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_rule_id")
	if !ok {
		return
	}
	if err := h.rules.Delete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, "delete_pricing_rule_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

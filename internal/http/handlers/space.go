package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

const maxRulesDocument = 1 << 20

type SpaceHandler struct {
	spaces   services.SpaceService
	rules    services.PricingRuleService
	bookings services.BookingService
}

func NewSpaceHandler(spaces services.SpaceService, rules services.PricingRuleService, bookings services.BookingService) *SpaceHandler {
	return &SpaceHandler{spaces: spaces, rules: rules, bookings: bookings}
}

// POST /api/spaces
func (h *SpaceHandler) CreateSpace(c *gin.Context) {
	var req services.SpaceInput
	if !bindJSON(c, &req) {
		return
	}
	sp, err := h.spaces.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "create_space_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"space": sp})
}

// GET /api/spaces?active=true
func (h *SpaceHandler) ListSpaces(c *gin.Context) {
	list, err := h.spaces.List(c.Request.Context(), queryBool(c, "active"))
	if err != nil {
		response.RespondAPIError(c, "list_spaces_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"spaces": list})
}

// GET /api/spaces/:id
func (h *SpaceHandler) GetSpace(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_space_id")
	if !ok {
		return
	}
	sp, err := h.spaces.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_space_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"space": sp})
}

// PATCH /api/spaces/:id
func (h *SpaceHandler) UpdateSpace(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_space_id")
	if !ok {
		return
	}
	var req services.SpacePatch
	if !bindJSON(c, &req) {
		return
	}
	sp, err := h.spaces.Update(c.Request.Context(), id, req)
	if err != nil {
		response.RespondAPIError(c, "update_space_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"space": sp})
}

// DELETE /api/spaces/:id deactivates; bookings keep referencing the space.
func (h *SpaceHandler) DeactivateSpace(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_space_id")
	if !ok {
		return
	}
	sp, err := h.spaces.Deactivate(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "deactivate_space_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"space": sp})
}

// GET /api/spaces/:id/slots?date=2026-03-02&slot=60&step=30
func (h *SpaceHandler) FreeSlots(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_space_id")
	if !ok {
		return
	}
	slot, err := minutesParam(c, "slot", 60)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_slot", err)
		return
	}
	step, err := minutesParam(c, "step", 30)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_step", err)
		return
	}
	slots, err := h.bookings.FreeSlots(c.Request.Context(), id, c.Query("date"), slot, step)
	if err != nil {
		response.RespondAPIError(c, "free_slots_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"slots": slots})
}

// GET /api/spaces/:id/pricing-rules
func (h *SpaceHandler) ListRules(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_space_id")
	if !ok {
		return
	}
	rules, err := h.rules.List(c.Request.Context(), &id)
	if err != nil {
		response.RespondAPIError(c, "list_pricing_rules_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"rules": rules})
}

// PUT /api/spaces/:id/pricing-rules replaces the space's rules with a YAML document.
func (h *SpaceHandler) ImportRules(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_space_id")
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRulesDocument+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(data) > maxRulesDocument {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "document_too_large", nil)
		return
	}
	rules, err := h.rules.ImportYAML(c.Request.Context(), &id, data)
	if err != nil {
		response.RespondAPIError(c, "import_pricing_rules_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"rules": rules})
}

func minutesParam(c *gin.Context, name string, def int) (time.Duration, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Duration(def) * time.Minute, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of minutes", name)
	}
	return time.Duration(n) * time.Minute, nil
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type QuotationHandler struct {
	quotations services.QuotationService
}

func NewQuotationHandler(quotations services.QuotationService) *QuotationHandler {
	return &QuotationHandler{quotations: quotations}
}

// POST /api/quotations
func (h *QuotationHandler) CreateQuotation(c *gin.Context) {
	var req services.QuotationInput
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.quotations.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "create_quotation_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"quotation": q})
}

// GET /api/quotations?status=&opportunity_id=
func (h *QuotationHandler) ListQuotations(c *gin.Context) {
	oppID, err := queryUUID(c, "opportunity_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_opportunity_id", err)
		return
	}
	limit, offset := pageParams(c)
	list, total, err := h.quotations.List(c.Request.Context(), repos.QuotationFilter{
		Status:        c.Query("status"),
		OpportunityID: oppID,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		response.RespondAPIError(c, "list_quotations_failed", err)
		return
	}
	response.RespondList(c, list, total, limit, offset)
}

// GET /api/quotations/:id
func (h *QuotationHandler) GetQuotation(c *gin.Context) {
	h.act(c, "get_quotation_failed", h.quotations.Get)
}

// POST /api/quotations/:id/send
func (h *QuotationHandler) SendQuotation(c *gin.Context) {
	h.act(c, "send_quotation_failed", h.quotations.Send)
}

// POST /api/quotations/:id/reject
func (h *QuotationHandler) RejectQuotation(c *gin.Context) {
	h.act(c, "reject_quotation_failed", h.quotations.Reject)
}

// POST /api/quotations/:id/accept
func (h *QuotationHandler) AcceptQuotation(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_quotation_id")
	if !ok {
		return
	}
	res, err := h.quotations.Accept(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "accept_quotation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"quotation": res.Quotation,
		"bookings":  res.Bookings,
		"invoice":   res.Invoice,
	})
}

func (h *QuotationHandler) act(c *gin.Context, code string, fn func(context.Context, uuid.UUID) (*types.Quotation, error)) {
	id, ok := pathID(c, "id", "invalid_quotation_id")
	if !ok {
		return
	}
	q, err := fn(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, code, err)
		return
	}
	response.RespondOK(c, gin.H{"quotation": q})
}

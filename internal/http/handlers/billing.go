package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type BillingHandler struct {
	billing services.BillingService
}

func NewBillingHandler(billing services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// GET /api/invoices?status=&booking_id=
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	bookingID, err := queryUUID(c, "booking_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_booking_id", err)
		return
	}
	limit, offset := pageParams(c)
	list, total, err := h.billing.ListInvoices(c.Request.Context(), repos.InvoiceFilter{
		Status:    c.Query("status"),
		BookingID: bookingID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		response.RespondAPIError(c, "list_invoices_failed", err)
		return
	}
	response.RespondList(c, list, total, limit, offset)
}

// GET /api/invoices/:id
func (h *BillingHandler) GetInvoice(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_invoice_id")
	if !ok {
		return
	}
	inv, err := h.billing.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_invoice_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"invoice": inv})
}

// POST /api/bookings/:id/invoice
func (h *BillingHandler) IssueForBooking(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_booking_id")
	if !ok {
		return
	}
	inv, err := h.billing.IssueForBooking(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "issue_invoice_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"invoice": inv})
}

// POST /api/invoices/:id/void
func (h *BillingHandler) VoidInvoice(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_invoice_id")
	if !ok {
		return
	}
	inv, err := h.billing.VoidInvoice(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "void_invoice_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"invoice": inv})
}

// POST /api/payments
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	var req services.PaymentInput
	if !bindJSON(c, &req) {
		return
	}
	p, inv, err := h.billing.RecordPayment(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "record_payment_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"payment": p, "invoice": inv})
}

// GET /api/payments?invoice_id=&reconciled=
func (h *BillingHandler) ListPayments(c *gin.Context) {
	invoiceID, err := queryUUID(c, "invoice_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_invoice_id", err)
		return
	}
	f := repos.PaymentFilter{InvoiceID: invoiceID}
	if raw := c.Query("reconciled"); raw != "" {
		v := queryBool(c, "reconciled")
		f.Reconciled = &v
	}
	f.Limit, f.Offset = pageParams(c)
	list, total, err := h.billing.ListPayments(c.Request.Context(), f)
	if err != nil {
		response.RespondAPIError(c, "list_payments_failed", err)
		return
	}
	response.RespondList(c, list, total, f.Limit, f.Offset)
}

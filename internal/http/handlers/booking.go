package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type BookingHandler struct {
	bookings services.BookingService
}

func NewBookingHandler(bookings services.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// POST /api/bookings/availability
func (h *BookingHandler) CheckAvailability(c *gin.Context) {
	var req services.AvailabilityQuery
	if !bindJSON(c, &req) {
		return
	}
	av, err := h.bookings.CheckAvailability(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "check_availability_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"availability": av})
}

// POST /api/bookings/quote
func (h *BookingHandler) Quote(c *gin.Context) {
	var req services.QuoteQuery
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.bookings.Quote(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "quote_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"quote": q})
}

// POST /api/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req services.BookingInput
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.RespondAPIError(c, "create_booking_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"booking": b})
}

// GET /api/bookings?space_id=&status=&from=&to=
func (h *BookingHandler) ListBookings(c *gin.Context) {
	spaceID, err := queryUUID(c, "space_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_space_id", err)
		return
	}
	from, err := queryTime(c, "from")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_from", err)
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_to", err)
		return
	}
	limit, offset := pageParams(c)
	list, total, err := h.bookings.List(c.Request.Context(), repos.BookingFilter{
		SpaceID: spaceID,
		Status:  c.Query("status"),
		From:    from,
		To:      to,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		response.RespondAPIError(c, "list_bookings_failed", err)
		return
	}
	response.RespondList(c, list, total, limit, offset)
}

// GET /api/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_booking_id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_booking_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"booking": b})
}

// POST /api/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_booking_id")
	if !ok {
		return
	}
	b, inv, err := h.bookings.Confirm(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "confirm_booking_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"booking": b, "invoice": inv})
}

// POST /api/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_booking_id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	b, err := h.bookings.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.RespondAPIError(c, "cancel_booking_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"booking": b})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/events streams the caller tenant's booking, quotation and billing
// events until the client disconnects. Optional query filters: events
// (comma separated event names) and space_id.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.TenantID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	filter, err := realtime.ParseFilter(c.Query("events"), c.Query("space_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_stream_filter", err)
		return
	}
	client := h.hub.Subscribe(rd.TenantID, filter)
	defer h.hub.Unsubscribe(client)
	h.log.WithContext(c.Request.Context()).Debug("SSE stream open", "client_id", client.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	if n := client.Dropped(); n > 0 {
		h.log.Warn("SSE stream closed with dropped messages", "client_id", client.ID, "dropped", n)
	}
}

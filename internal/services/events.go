package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
)

// eventPublisher fans committed changes out to the tenant's realtime streams.
// Publishing is best effort: the write already happened.
type eventPublisher struct {
	bus bus.Bus
	log *logger.Logger
}

func (p eventPublisher) publish(ctx context.Context, tenantID uuid.UUID, event realtime.SSEEvent, data any) {
	if p.bus == nil {
		return
	}
	msg := realtime.SSEMessage{
		ID:       uuid.New(),
		TenantID: tenantID,
		Event:    event,
		Data:     data,
		At:       time.Now().UTC(),
	}
	if b, ok := data.(*types.Booking); ok {
		msg.SpaceID = &b.SpaceID
	}
	if err := p.bus.Publish(ctx, msg); err != nil && p.log != nil {
		p.log.Warn("Failed to publish realtime event", "event", event, "tenant_id", tenantID, "error", err)
	}
}

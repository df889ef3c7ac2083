package realtime

import (
	"time"

	"github.com/google/uuid"
)

type SSEEvent string

const (
	SSEEventBookingCreated    SSEEvent = "BookingCreated"
	SSEEventBookingConfirmed  SSEEvent = "BookingConfirmed"
	SSEEventBookingCancelled  SSEEvent = "BookingCancelled"
	SSEEventBookingExpired    SSEEvent = "BookingExpired"
	SSEEventQuotationAccepted SSEEvent = "QuotationAccepted"
	SSEEventPaymentRecorded   SSEEvent = "PaymentRecorded"
	SSEEventReconcileDone     SSEEvent = "ReconciliationCompleted"
)

var knownEvents = map[SSEEvent]bool{
	SSEEventBookingCreated:    true,
	SSEEventBookingConfirmed:  true,
	SSEEventBookingCancelled:  true,
	SSEEventBookingExpired:    true,
	SSEEventQuotationAccepted: true,
	SSEEventPaymentRecorded:   true,
	SSEEventReconcileDone:     true,
}

// SSEMessage is one committed change. Messages never cross tenants; SpaceID
// is set for booking events so a stream can follow a single room.
type SSEMessage struct {
	ID       uuid.UUID  `json:"id"`
	TenantID uuid.UUID  `json:"tenant_id"`
	SpaceID  *uuid.UUID `json:"space_id,omitempty"`
	Event    SSEEvent   `json:"event"`
	Data     any        `json:"data,omitempty"`
	At       time.Time  `json:"at"`
}

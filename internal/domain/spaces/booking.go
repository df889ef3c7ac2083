package spaces

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingExpired   = "expired"
)

// ActiveBookingStatuses are the statuses that block a space.
var ActiveBookingStatuses = []string{BookingPending, BookingConfirmed}

type Booking struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_booking_tenant_space_start,priority:1" json:"tenant_id"`
	SpaceID  uuid.UUID `gorm:"type:uuid;not null;index:idx_booking_tenant_space_start,priority:2" json:"space_id"`

	MemberName  string `gorm:"not null;column:member_name" json:"member_name"`
	MemberEmail string `gorm:"column:member_email" json:"member_email"`
	MemberTier  string `gorm:"column:member_tier" json:"member_tier,omitempty"`
	Attendees   int    `gorm:"not null;column:attendees" json:"attendees"`

	StartAt time.Time `gorm:"not null;column:start_at;index:idx_booking_tenant_space_start,priority:3" json:"start_at"`
	EndAt   time.Time `gorm:"not null;column:end_at" json:"end_at"`
	Status  string    `gorm:"not null;column:status;index" json:"status"`

	PriceAmount int64  `gorm:"not null;column:price_amount" json:"price_amount"`
	TaxAmount   int64  `gorm:"not null;column:tax_amount" json:"tax_amount"`
	TotalAmount int64  `gorm:"not null;column:total_amount" json:"total_amount"`
	Currency    string `gorm:"not null;size:3;column:currency" json:"currency"`

	QuotationID   *uuid.UUID `gorm:"type:uuid;column:quotation_id;index" json:"quotation_id,omitempty"`
	HoldExpiresAt *time.Time `gorm:"column:hold_expires_at;index" json:"hold_expires_at,omitempty"`
	ConfirmedAt   *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CancelledAt   *time.Time `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason  string     `gorm:"column:cancel_reason" json:"cancel_reason,omitempty"`
	Notes         string     `gorm:"column:notes;type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string { return "booking" }

func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Booking) IsActive() bool {
	return b != nil && (b.Status == BookingPending || b.Status == BookingConfirmed)
}

// HoldLapsed reports a pending booking whose hold ran out at or before now,
// whether or not the expiry sweep has recorded it yet.
func (b *Booking) HoldLapsed(now time.Time) bool {
	return b != nil && b.Status == BookingPending && b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt)
}

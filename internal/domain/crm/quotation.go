package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuotationDraft    = "draft"
	QuotationSent     = "sent"
	QuotationAccepted = "accepted"
	QuotationRejected = "rejected"
	QuotationExpired  = "expired"
)

type Quotation struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_quotation_tenant_number,priority:1;index:idx_quotation_tenant_status,priority:1" json:"tenant_id"`
	OpportunityID *uuid.UUID `gorm:"type:uuid;column:opportunity_id;index" json:"opportunity_id,omitempty"`

	Number     string    `gorm:"not null;column:number;uniqueIndex:idx_quotation_tenant_number,priority:2" json:"number"`
	Status     string    `gorm:"not null;column:status;index:idx_quotation_tenant_status,priority:2" json:"status"`
	Currency   string    `gorm:"not null;size:3;column:currency" json:"currency"`
	ValidUntil time.Time `gorm:"not null;column:valid_until" json:"valid_until"`

	CustomerName  string `gorm:"column:customer_name" json:"customer_name"`
	CustomerEmail string `gorm:"column:customer_email" json:"customer_email"`

	SubtotalAmount int64 `gorm:"not null;column:subtotal_amount" json:"subtotal_amount"`
	DiscountAmount int64 `gorm:"not null;column:discount_amount" json:"discount_amount"`
	TaxAmount      int64 `gorm:"not null;column:tax_amount" json:"tax_amount"`
	TotalAmount    int64 `gorm:"not null;column:total_amount" json:"total_amount"`

	Notes    string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	SentAt     *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	AcceptedAt *time.Time `gorm:"column:accepted_at" json:"accepted_at,omitempty"`

	Lines []QuotationLine `gorm:"foreignKey:QuotationID" json:"lines"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Quotation) TableName() string { return "quotation" }

func (q *Quotation) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// ExpiredAt reports whether validity has ended; ValidUntil itself is already past it.
func (q *Quotation) ExpiredAt(now time.Time) bool {
	return !now.Before(q.ValidUntil)
}

// QuotationLine is either a manual line (quantity * unit) or a space line
// priced by the booking engine for [StartAt, EndAt).
type QuotationLine struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuotationID uuid.UUID `gorm:"type:uuid;not null;index" json:"quotation_id"`
	Position    int       `gorm:"not null;column:position" json:"position"`

	Description string `gorm:"not null;column:description" json:"description"`
	Quantity    int64  `gorm:"not null;column:quantity" json:"quantity"`
	UnitAmount  int64  `gorm:"not null;column:unit_amount" json:"unit_amount"`
	DiscountBps int64  `gorm:"not null;column:discount_bps" json:"discount_bps"`

	SpaceID    *uuid.UUID `gorm:"type:uuid;column:space_id" json:"space_id,omitempty"`
	StartAt    *time.Time `gorm:"column:start_at" json:"start_at,omitempty"`
	EndAt      *time.Time `gorm:"column:end_at" json:"end_at,omitempty"`
	Attendees  int        `gorm:"column:attendees" json:"attendees,omitempty"`
	BookingID  *uuid.UUID `gorm:"type:uuid;column:booking_id" json:"booking_id,omitempty"`
	LineAmount int64      `gorm:"not null;column:line_amount" json:"line_amount"`
}

func (QuotationLine) TableName() string { return "quotation_line" }

func (l *QuotationLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l *QuotationLine) IsSpaceLine() bool {
	return l != nil && l.SpaceID != nil && l.StartAt != nil && l.EndAt != nil
}

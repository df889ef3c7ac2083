package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	InvoiceOpen          = "open"
	InvoicePartiallyPaid = "partially_paid"
	InvoicePaid          = "paid"
	InvoiceVoid          = "void"
	InvoiceOverdue       = "overdue"
)

type Invoice struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_tenant_number,priority:1;index:idx_invoice_tenant_status,priority:1" json:"tenant_id"`
	BookingID *uuid.UUID `gorm:"type:uuid;column:booking_id;index" json:"booking_id,omitempty"`

	Number        string `gorm:"not null;column:number;uniqueIndex:idx_invoice_tenant_number,priority:2" json:"number"`
	CustomerName  string `gorm:"not null;column:customer_name" json:"customer_name"`
	CustomerEmail string `gorm:"column:customer_email" json:"customer_email"`
	Currency      string `gorm:"not null;size:3;column:currency" json:"currency"`
	Amount        int64  `gorm:"not null;column:amount" json:"amount"`
	PaidAmount    int64  `gorm:"not null;column:paid_amount" json:"paid_amount"`
	Status        string `gorm:"not null;column:status;index:idx_invoice_tenant_status,priority:2" json:"status"`

	IssuedAt time.Time  `gorm:"not null;column:issued_at" json:"issued_at"`
	DueAt    time.Time  `gorm:"not null;column:due_at;index" json:"due_at"`
	VoidedAt *time.Time `gorm:"column:voided_at" json:"voided_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoice" }

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *Invoice) Outstanding() int64 {
	if i == nil {
		return 0
	}
	if d := i.Amount - i.PaidAmount; d > 0 {
		return d
	}
	return 0
}

// StatusForPaid derives the payment status from the paid amount. Overdue
// invoices stay overdue until fully paid.
func (i *Invoice) StatusForPaid(paid int64) string {
	switch {
	case paid >= i.Amount:
		return InvoicePaid
	case i.Status == InvoiceOverdue:
		return InvoiceOverdue
	case paid > 0:
		return InvoicePartiallyPaid
	default:
		return InvoiceOpen
	}
}

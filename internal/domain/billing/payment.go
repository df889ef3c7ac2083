package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
	MethodCash         = "cash"
	MethodOther        = "other"
)

type Payment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_payment_tenant_reconciled,priority:1" json:"tenant_id"`
	InvoiceID *uuid.UUID `gorm:"type:uuid;column:invoice_id;index" json:"invoice_id,omitempty"`

	Amount     int64     `gorm:"not null;column:amount" json:"amount"`
	Currency   string    `gorm:"not null;size:3;column:currency" json:"currency"`
	Method     string    `gorm:"not null;column:method" json:"method"`
	Reference  string    `gorm:"column:reference" json:"reference"`
	PayerName  string    `gorm:"column:payer_name" json:"payer_name"`
	ReceivedAt time.Time `gorm:"not null;column:received_at" json:"received_at"`

	Reconciled        bool       `gorm:"not null;column:reconciled;index:idx_payment_tenant_reconciled,priority:2" json:"reconciled"`
	BankTransactionID *uuid.UUID `gorm:"type:uuid;column:bank_transaction_id" json:"bank_transaction_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func ValidMethod(m string) bool {
	switch m {
	case MethodCard, MethodBankTransfer, MethodCash, MethodOther:
		return true
	}
	return false
}

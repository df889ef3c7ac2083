package domain

import (
	"github.com/yungbote/deskbase-backend/internal/domain/billing"
	"github.com/yungbote/deskbase-backend/internal/domain/crm"
	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
	"github.com/yungbote/deskbase-backend/internal/domain/tenant"
)

// Tenant
type Tenant = tenant.Tenant
type Sequence = tenant.Sequence

// CRM
type Lead = crm.Lead
type Opportunity = crm.Opportunity
type Quotation = crm.Quotation
type QuotationLine = crm.QuotationLine

// Spaces
type Space = spaces.Space
type Booking = spaces.Booking
type PricingRule = spaces.PricingRule

// Billing
type Invoice = billing.Invoice
type Payment = billing.Payment
type BankStatement = billing.BankStatement
type BankTransaction = billing.BankTransaction
type ReconciliationMatch = billing.ReconciliationMatch

// Models lists every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&tenant.Tenant{},
		&tenant.Sequence{},
		&crm.Lead{},
		&crm.Opportunity{},
		&crm.Quotation{},
		&crm.QuotationLine{},
		&spaces.Space{},
		&spaces.Booking{},
		&spaces.PricingRule{},
		&billing.Invoice{},
		&billing.Payment{},
		&billing.BankStatement{},
		&billing.BankTransaction{},
		&billing.ReconciliationMatch{},
	}
}

const (
	QuotationStatusDraft    = crm.QuotationDraft
	QuotationStatusSent     = crm.QuotationSent
	QuotationStatusAccepted = crm.QuotationAccepted
	QuotationStatusRejected = crm.QuotationRejected
	QuotationStatusExpired  = crm.QuotationExpired

	BookingStatusPending   = spaces.BookingPending
	BookingStatusConfirmed = spaces.BookingConfirmed
	BookingStatusCancelled = spaces.BookingCancelled
	BookingStatusExpired   = spaces.BookingExpired

	InvoiceStatusOpen          = billing.InvoiceOpen
	InvoiceStatusPartiallyPaid = billing.InvoicePartiallyPaid
	InvoiceStatusPaid          = billing.InvoicePaid
	InvoiceStatusVoid          = billing.InvoiceVoid
	InvoiceStatusOverdue       = billing.InvoiceOverdue

	StatementStatusImported    = billing.StatementImported
	StatementStatusReconciling = billing.StatementReconciling
	StatementStatusReconciled  = billing.StatementReconciled

	MatchStatusSuggested = billing.MatchSuggested
	MatchStatusConfirmed = billing.MatchConfirmed
	MatchStatusRejected  = billing.MatchRejected
)

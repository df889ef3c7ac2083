package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/repos/billing"
	"github.com/yungbote/deskbase-backend/internal/data/repos/crm"
	"github.com/yungbote/deskbase-backend/internal/data/repos/spaces"
	"github.com/yungbote/deskbase-backend/internal/data/repos/tenant"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type TenantRepo = tenant.TenantRepo
type SequenceRepo = tenant.SequenceRepo

type LeadRepo = crm.LeadRepo
type LeadFilter = crm.LeadFilter
type OpportunityRepo = crm.OpportunityRepo
type OpportunityFilter = crm.OpportunityFilter
type QuotationRepo = crm.QuotationRepo
type QuotationFilter = crm.QuotationFilter

type SpaceRepo = spaces.SpaceRepo
type BookingRepo = spaces.BookingRepo
type BookingFilter = spaces.BookingFilter
type PricingRuleRepo = spaces.PricingRuleRepo

type InvoiceRepo = billing.InvoiceRepo
type InvoiceFilter = billing.InvoiceFilter
type PaymentRepo = billing.PaymentRepo
type PaymentFilter = billing.PaymentFilter
type BankStatementRepo = billing.BankStatementRepo
type BankTransactionRepo = billing.BankTransactionRepo
type ReconciliationMatchRepo = billing.ReconciliationMatchRepo
type MatchFilter = billing.MatchFilter

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	return tenant.NewTenantRepo(db, baseLog)
}
func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) SequenceRepo {
	return tenant.NewSequenceRepo(db, baseLog)
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo { return crm.NewLeadRepo(db, baseLog) }
func NewOpportunityRepo(db *gorm.DB, baseLog *logger.Logger) OpportunityRepo {
	return crm.NewOpportunityRepo(db, baseLog)
}
func NewQuotationRepo(db *gorm.DB, baseLog *logger.Logger) QuotationRepo {
	return crm.NewQuotationRepo(db, baseLog)
}

func NewSpaceRepo(db *gorm.DB, baseLog *logger.Logger) SpaceRepo {
	return spaces.NewSpaceRepo(db, baseLog)
}
func NewBookingRepo(db *gorm.DB, baseLog *logger.Logger) BookingRepo {
	return spaces.NewBookingRepo(db, baseLog)
}
func NewPricingRuleRepo(db *gorm.DB, baseLog *logger.Logger) PricingRuleRepo {
	return spaces.NewPricingRuleRepo(db, baseLog)
}

func NewInvoiceRepo(db *gorm.DB, baseLog *logger.Logger) InvoiceRepo {
	return billing.NewInvoiceRepo(db, baseLog)
}
func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return billing.NewPaymentRepo(db, baseLog)
}
func NewBankStatementRepo(db *gorm.DB, baseLog *logger.Logger) BankStatementRepo {
	return billing.NewBankStatementRepo(db, baseLog)
}
func NewBankTransactionRepo(db *gorm.DB, baseLog *logger.Logger) BankTransactionRepo {
	return billing.NewBankTransactionRepo(db, baseLog)
}
func NewReconciliationMatchRepo(db *gorm.DB, baseLog *logger.Logger) ReconciliationMatchRepo {
	return billing.NewReconciliationMatchRepo(db, baseLog)
}

package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type Repos struct {
	Tenant      repos.TenantRepo
	Lead        repos.LeadRepo
	Opportunity repos.OpportunityRepo
	Quotation   repos.QuotationRepo
	Space       repos.SpaceRepo
	PricingRule repos.PricingRuleRepo
	Booking     repos.BookingRepo
	Invoice     repos.InvoiceRepo
	Payment     repos.PaymentRepo
	Statement   repos.BankStatementRepo
	Transaction repos.BankTransactionRepo
	Match       repos.ReconciliationMatchRepo
	Sequence    repos.SequenceRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tenant:      repos.NewTenantRepo(db, log),
		Lead:        repos.NewLeadRepo(db, log),
		Opportunity: repos.NewOpportunityRepo(db, log),
		Quotation:   repos.NewQuotationRepo(db, log),
		Space:       repos.NewSpaceRepo(db, log),
		PricingRule: repos.NewPricingRuleRepo(db, log),
		Booking:     repos.NewBookingRepo(db, log),
		Invoice:     repos.NewInvoiceRepo(db, log),
		Payment:     repos.NewPaymentRepo(db, log),
		Statement:   repos.NewBankStatementRepo(db, log),
		Transaction: repos.NewBankTransactionRepo(db, log),
		Match:       repos.NewReconciliationMatchRepo(db, log),
		Sequence:    repos.NewSequenceRepo(db, log),
	}
}

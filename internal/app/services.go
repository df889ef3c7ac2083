package app

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/billing/reconcile"
	"github.com/yungbote/deskbase-backend/internal/observability"
	"github.com/yungbote/deskbase-backend/internal/platform/gcp"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/platform/redisx"
	"github.com/yungbote/deskbase-backend/internal/platform/sendgrid"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
	"github.com/yungbote/deskbase-backend/internal/services"
)

const availabilityCacheTTL = 30 * time.Second

type Services struct {
	Tenant         services.TenantService
	Lead           services.LeadService
	Opportunity    services.OpportunityService
	Space          services.SpaceService
	PricingRule    services.PricingRuleService
	Booking        services.BookingService
	Billing        services.BillingService
	Quotation      services.QuotationService
	Reconciliation services.ReconciliationService
}

type serviceDeps struct {
	db         *gorm.DB
	log        *logger.Logger
	repos      Repos
	rdb        *goredis.Client
	bus        bus.Bus
	metrics    *observability.Metrics
	archive    gcp.ArchiveStore
	dispatcher services.ReconcileDispatcher
	mail       sendgrid.Client
	holdTTL    time.Duration
}

func wireServices(d serviceDeps) Services {
	d.log.Info("Wiring services...")
	r := d.repos

	var locker redisx.Locker
	if d.rdb != nil {
		locker = redisx.NewLocker(d.rdb, "deskbase:lock:")
	} else {
		locker = redisx.NewLocalLocker()
	}
	cache := redisx.NewJSONCache(d.rdb, "deskbase:avail:", availabilityCacheTTL)
	numbers := services.NewNumberer(r.Sequence)

	bookings := services.NewBookingService(
		d.db, d.log,
		r.Tenant, r.Space, r.Booking, r.PricingRule, r.Invoice,
		numbers, locker, cache, d.bus, d.metrics, d.holdTTL,
	)
	return Services{
		Tenant:      services.NewTenantService(d.db, d.log, r.Tenant),
		Lead:        services.NewLeadService(d.db, d.log, r.Lead, r.Opportunity),
		Opportunity: services.NewOpportunityService(d.db, d.log, r.Opportunity, r.Lead),
		Space:       services.NewSpaceService(d.db, d.log, r.Space),
		PricingRule: services.NewPricingRuleService(d.db, d.log, r.PricingRule, r.Space),
		Booking:     bookings,
		Billing:     services.NewBillingService(d.db, d.log, r.Tenant, r.Booking, r.Invoice, r.Payment, numbers, d.bus),
		Quotation: services.NewQuotationService(
			d.db, d.log,
			r.Tenant, r.Quotation, r.Opportunity, r.Space, r.PricingRule, r.Invoice,
			numbers, bookings, d.bus, d.mail,
		),
		Reconciliation: services.NewReconciliationService(
			d.db, d.log,
			r.Tenant, r.Statement, r.Transaction, r.Payment, r.Invoice, r.Match,
			d.archive, d.dispatcher, reconcile.DefaultConfig(), d.bus, d.metrics,
		),
	}
}

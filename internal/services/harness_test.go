package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/billing/reconcile"
	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
)

type harness struct {
	db     *gorm.DB
	ctx    context.Context
	tenant *types.Tenant
	space  *types.Space

	tenants       repos.TenantRepo
	leadRepo      repos.LeadRepo
	oppRepo       repos.OpportunityRepo
	quotationRepo repos.QuotationRepo
	spaceRepo     repos.SpaceRepo
	bookingRepo   repos.BookingRepo
	ruleRepo      repos.PricingRuleRepo
	invoiceRepo   repos.InvoiceRepo
	paymentRepo   repos.PaymentRepo
	statementRepo repos.BankStatementRepo
	txRepo        repos.BankTransactionRepo
	matchRepo     repos.ReconciliationMatchRepo

	leads      LeadService
	opps       OpportunityService
	quotations QuotationService
	spaces     SpaceService
	rules      PricingRuleService
	bookings   BookingService
	billing    BillingService
	reconcile  ReconciliationService

	events *eventRecorder
}

type eventRecorder struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (r *eventRecorder) add(m realtime.SSEMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *eventRecorder) count(event realtime.SSEEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	h := &harness{db: gdb, events: &eventRecorder{}}
	h.tenant = testutil.SeedTenant(t, ctx, gdb)
	h.space = testutil.SeedSpace(t, ctx, gdb, h.tenant.ID)
	h.ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TenantID: h.tenant.ID})

	h.tenants = repos.NewTenantRepo(gdb, log)
	h.leadRepo = repos.NewLeadRepo(gdb, log)
	h.oppRepo = repos.NewOpportunityRepo(gdb, log)
	h.quotationRepo = repos.NewQuotationRepo(gdb, log)
	h.spaceRepo = repos.NewSpaceRepo(gdb, log)
	h.bookingRepo = repos.NewBookingRepo(gdb, log)
	h.ruleRepo = repos.NewPricingRuleRepo(gdb, log)
	h.invoiceRepo = repos.NewInvoiceRepo(gdb, log)
	h.paymentRepo = repos.NewPaymentRepo(gdb, log)
	h.statementRepo = repos.NewBankStatementRepo(gdb, log)
	h.txRepo = repos.NewBankTransactionRepo(gdb, log)
	h.matchRepo = repos.NewReconciliationMatchRepo(gdb, log)
	numbers := NewNumberer(repos.NewSequenceRepo(gdb, log))

	eventBus := bus.NewLocalBus()
	_ = eventBus.StartForwarder(ctx, h.events.add)

	h.leads = NewLeadService(gdb, log, h.leadRepo, h.oppRepo)
	h.opps = NewOpportunityService(gdb, log, h.oppRepo, h.leadRepo)
	h.spaces = NewSpaceService(gdb, log, h.spaceRepo)
	h.rules = NewPricingRuleService(gdb, log, h.ruleRepo, h.spaceRepo)
	h.bookings = NewBookingService(
		gdb,
		log,
		h.tenants,
		h.spaceRepo,
		h.bookingRepo,
		h.ruleRepo,
		h.invoiceRepo,
		numbers,
		nil,
		nil,
		eventBus,
		nil,
		DefaultHoldTTL,
	)
	h.billing = NewBillingService(gdb, log, h.tenants, h.bookingRepo, h.invoiceRepo, h.paymentRepo, numbers, eventBus)
	h.quotations = NewQuotationService(
		gdb,
		log,
		h.tenants,
		h.quotationRepo,
		h.oppRepo,
		h.spaceRepo,
		h.ruleRepo,
		h.invoiceRepo,
		numbers,
		h.bookings,
		eventBus,
		nil,
	)
	h.reconcile = NewReconciliationService(
		gdb,
		log,
		h.tenants,
		h.statementRepo,
		h.txRepo,
		h.paymentRepo,
		h.invoiceRepo,
		h.matchRepo,
		nil,
		nil,
		reconcile.DefaultConfig(),
		eventBus,
		nil,
	)
	return h
}

// setClock pins the clock of every service that reads one.
func (h *harness) setClock(now time.Time) {
	c := clock(func() time.Time { return now })
	h.bookings.(*bookingService).clock = c
	h.billing.(*billingService).clock = c
	h.quotations.(*quotationService).clock = c
	h.reconcile.(*reconciliationService).clock = c
}

// slot returns [start, start+d) at hour:00 UTC, days ahead of today.
func slot(days, hour int, d time.Duration) (time.Time, time.Time) {
	day := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, days)
	start := day.Add(time.Duration(hour) * time.Hour)
	return start, start.Add(d)
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("want error %q, got nil", code)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("want api error %q, got %v", code, err)
	}
	if ae.Code != code {
		t.Fatalf("want code %q, got %q (%v)", code, ae.Code, err)
	}
}

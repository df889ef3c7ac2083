package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/billing"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
)

const invoiceDueDays = 14

type PaymentInput struct {
	InvoiceID  *uuid.UUID `json:"invoice_id,omitempty"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference"`
	PayerName  string     `json:"payer_name"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

type BillingService interface {
	IssueForBooking(ctx context.Context, bookingID uuid.UUID) (*types.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*types.Invoice, error)
	ListInvoices(ctx context.Context, f repos.InvoiceFilter) ([]*types.Invoice, int64, error)
	VoidInvoice(ctx context.Context, id uuid.UUID) (*types.Invoice, error)
	RecordPayment(ctx context.Context, in PaymentInput) (*types.Payment, *types.Invoice, error)
	ListPayments(ctx context.Context, f repos.PaymentFilter) ([]*types.Payment, int64, error)
	// MarkOverdue flags open invoices of every tenant whose due date passed.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type billingService struct {
	db       *gorm.DB
	log      *logger.Logger
	tenants  repos.TenantRepo
	bookings repos.BookingRepo
	invoices repos.InvoiceRepo
	payments repos.PaymentRepo
	numbers  *Numberer
	events   eventPublisher
	clock    clock
}

func NewBillingService(
	db *gorm.DB,
	log *logger.Logger,
	tenants repos.TenantRepo,
	bookings repos.BookingRepo,
	invoices repos.InvoiceRepo,
	payments repos.PaymentRepo,
	numbers *Numberer,
	eventBus bus.Bus,
) BillingService {
	serviceLog := log.With("service", "BillingService")
	return &billingService{
		db:       db,
		log:      serviceLog,
		tenants:  tenants,
		bookings: bookings,
		invoices: invoices,
		payments: payments,
		numbers:  numbers,
		events:   eventPublisher{bus: eventBus, log: serviceLog},
	}
}

type invoiceDraft struct {
	BookingID     *uuid.UUID
	CustomerName  string
	CustomerEmail string
	Currency      string
	Amount        int64
}

// issueInvoice numbers and stores an invoice. dbc must carry a transaction.
func issueInvoice(dbc dbctx.Context, invoices repos.InvoiceRepo, numbers *Numberer, tenantID uuid.UUID, d invoiceDraft, now time.Time) (*types.Invoice, error) {
	number, err := numbers.Next(dbc, tenantID, prefixInvoice, now)
	if err != nil {
		return nil, err
	}
	inv := &types.Invoice{
		TenantID:      tenantID,
		BookingID:     d.BookingID,
		Number:        number,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		Currency:      d.Currency,
		Amount:        d.Amount,
		IssuedAt:      now,
		DueAt:         now.AddDate(0, 0, invoiceDueDays),
	}
	inv.Status = inv.StatusForPaid(0)
	if _, err := invoices.Create(dbc, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return inv, nil
}

func issueBookingInvoice(dbc dbctx.Context, invoices repos.InvoiceRepo, numbers *Numberer, b *types.Booking, now time.Time) (*types.Invoice, error) {
	existing, err := invoices.GetActiveByBooking(dbc, b.TenantID, b.ID)
	if err != nil {
		return nil, fmt.Errorf("load booking invoice: %w", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("invoice_exists", "booking already has invoice %s", existing.Number)
	}
	return issueInvoice(dbc, invoices, numbers, b.TenantID, invoiceDraft{
		BookingID:     &b.ID,
		CustomerName:  b.MemberName,
		CustomerEmail: b.MemberEmail,
		Currency:      b.Currency,
		Amount:        b.TotalAmount,
	}, now)
}

func (s *billingService) IssueForBooking(ctx context.Context, bookingID uuid.UUID) (*types.Invoice, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Invoice
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		b, err := s.bookings.GetForUpdate(dbc, tenantID, bookingID)
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if b == nil {
			return apierr.NotFound("booking_not_found", "booking %s not found", bookingID)
		}
		if b.Status != types.BookingStatusConfirmed {
			return apierr.Conflict("booking_not_confirmed", "only confirmed bookings are invoiced (status %s)", b.Status)
		}
		inv, err := issueBookingInvoice(dbc, s.invoices, s.numbers, b, s.clock.now())
		out = inv
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("Invoice issued", "invoice_id", out.ID, "booking_id", bookingID)
	return out, nil
}

func (s *billingService) GetInvoice(ctx context.Context, id uuid.UUID) (*types.Invoice, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	if inv == nil {
		return nil, apierr.NotFound("invoice_not_found", "invoice %s not found", id)
	}
	return inv, nil
}

func (s *billingService) ListInvoices(ctx context.Context, f repos.InvoiceFilter) ([]*types.Invoice, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.invoices.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *billingService) VoidInvoice(ctx context.Context, id uuid.UUID) (*types.Invoice, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Invoice
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		inv, err := s.invoices.GetForUpdate(dbc, tenantID, id)
		if err != nil {
			return fmt.Errorf("load invoice: %w", err)
		}
		if inv == nil {
			return apierr.NotFound("invoice_not_found", "invoice %s not found", id)
		}
		if err := voidInvoice(dbc, s.invoices, inv, s.clock.now()); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func voidInvoice(dbc dbctx.Context, invoices repos.InvoiceRepo, inv *types.Invoice, now time.Time) error {
	if inv.Status == types.InvoiceStatusVoid {
		return apierr.Conflict("invoice_void", "invoice %s is already void", inv.Number)
	}
	if inv.PaidAmount > 0 {
		return apierr.Conflict("invoice_has_payments", "invoice %s has payments and cannot be voided", inv.Number)
	}
	if err := invoices.UpdateFields(dbc, inv.TenantID, inv.ID, map[string]interface{}{
		"status":     types.InvoiceStatusVoid,
		"voided_at":  now,
		"updated_at": now,
	}); err != nil {
		return fmt.Errorf("void invoice: %w", err)
	}
	inv.Status = types.InvoiceStatusVoid
	inv.VoidedAt = timePtr(now)
	return nil
}

func (s *billingService) RecordPayment(ctx context.Context, in PaymentInput) (*types.Payment, *types.Invoice, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	if in.Amount <= 0 {
		return nil, nil, apierr.Invalid("invalid_amount", "payment amount must be positive")
	}
	method := strings.TrimSpace(in.Method)
	if method == "" {
		method = billing.MethodBankTransfer
	}
	if !billing.ValidMethod(method) {
		return nil, nil, apierr.Invalid("invalid_method", "unknown payment method %q", in.Method)
	}
	now := s.clock.now()
	received := now
	if in.ReceivedAt != nil {
		received = in.ReceivedAt.UTC()
	}

	var (
		payment *types.Payment
		invoice *types.Invoice
	)
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		t, err := loadTenant(dbc, s.tenants, tenantID)
		if err != nil {
			return err
		}
		currency := normalizeCurrency(in.Currency)
		if currency == "" {
			currency = t.Currency
		}
		if !validCurrency(currency) {
			return apierr.Invalid("invalid_currency", "currency %q is not an ISO 4217 code", in.Currency)
		}

		if in.InvoiceID != nil {
			inv, err := s.invoices.GetForUpdate(dbc, tenantID, *in.InvoiceID)
			if err != nil {
				return fmt.Errorf("load invoice: %w", err)
			}
			if inv == nil {
				return apierr.NotFound("invoice_not_found", "invoice %s not found", *in.InvoiceID)
			}
			if inv.Status == types.InvoiceStatusVoid {
				return apierr.Conflict("invoice_void", "invoice %s is void", inv.Number)
			}
			if inv.Currency != currency {
				return apierr.Invalid("currency_mismatch", "invoice is in %s, payment in %s", inv.Currency, currency)
			}
			if in.Amount > inv.Outstanding() {
				return apierr.Conflict("overpayment", "payment of %d exceeds the outstanding %d", in.Amount, inv.Outstanding())
			}
			paid := inv.PaidAmount + in.Amount
			status := inv.StatusForPaid(paid)
			if err := s.invoices.UpdateFields(dbc, tenantID, inv.ID, map[string]interface{}{
				"paid_amount": paid,
				"status":      status,
				"updated_at":  now,
			}); err != nil {
				return fmt.Errorf("apply payment: %w", err)
			}
			inv.PaidAmount = paid
			inv.Status = status
			invoice = inv
		}

		p := &types.Payment{
			TenantID:   tenantID,
			InvoiceID:  in.InvoiceID,
			Amount:     in.Amount,
			Currency:   currency,
			Method:     method,
			Reference:  strings.TrimSpace(in.Reference),
			PayerName:  strings.TrimSpace(in.PayerName),
			ReceivedAt: received,
		}
		if _, err := s.payments.Create(dbc, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.events.publish(ctx, tenantID, realtime.SSEEventPaymentRecorded, payment)
	return payment, invoice, nil
}

func (s *billingService) ListPayments(ctx context.Context, f repos.PaymentFilter) ([]*types.Payment, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.payments.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *billingService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.invoices.MarkOverdue(dbctx.Context{Ctx: ctx}, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}
	if n > 0 {
		s.log.Info("Invoices marked overdue", "count", n)
	}
	return n, nil
}

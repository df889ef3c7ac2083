package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/booking/pricing"
	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/crm"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/platform/sendgrid"
	"github.com/yungbote/deskbase-backend/internal/platform/money"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
)

const defaultQuotationValidity = 30 * 24 * time.Hour

type QuotationLineInput struct {
	Description string     `json:"description"`
	Quantity    int64      `json:"quantity"`
	UnitAmount  int64      `json:"unit_amount"`
	DiscountBps int64      `json:"discount_bps"`
	SpaceID     *uuid.UUID `json:"space_id,omitempty"`
	StartAt     *time.Time `json:"start_at,omitempty"`
	EndAt       *time.Time `json:"end_at,omitempty"`
	Attendees   int        `json:"attendees,omitempty"`
	MemberTier  string     `json:"member_tier,omitempty"`
}

type QuotationInput struct {
	OpportunityID *uuid.UUID           `json:"opportunity_id,omitempty"`
	CustomerName  string               `json:"customer_name"`
	CustomerEmail string               `json:"customer_email"`
	ValidUntil    *time.Time           `json:"valid_until,omitempty"`
	Notes         string               `json:"notes"`
	Lines         []QuotationLineInput `json:"lines"`
}

type AcceptedQuotation struct {
	Quotation *types.Quotation `json:"quotation"`
	Bookings  []*types.Booking `json:"bookings"`
	Invoice   *types.Invoice   `json:"invoice,omitempty"`
}

type QuotationService interface {
	Create(ctx context.Context, in QuotationInput) (*types.Quotation, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Quotation, error)
	List(ctx context.Context, f repos.QuotationFilter) ([]*types.Quotation, int64, error)
	Send(ctx context.Context, id uuid.UUID) (*types.Quotation, error)
	Accept(ctx context.Context, id uuid.UUID) (*AcceptedQuotation, error)
	Reject(ctx context.Context, id uuid.UUID) (*types.Quotation, error)
	// ExpireDue expires sent quotations of every tenant past their validity.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type quotationService struct {
	db         *gorm.DB
	log        *logger.Logger
	tenants    repos.TenantRepo
	quotations repos.QuotationRepo
	opps       repos.OpportunityRepo
	spaces     repos.SpaceRepo
	rules      repos.PricingRuleRepo
	invoices   repos.InvoiceRepo
	numbers    *Numberer
	bookings   BookingService
	events     eventPublisher
	mailer     quotationMailer
	clock      clock
}

func NewQuotationService(
	db *gorm.DB,
	log *logger.Logger,
	tenants repos.TenantRepo,
	quotations repos.QuotationRepo,
	opps repos.OpportunityRepo,
	spaceRepo repos.SpaceRepo,
	rules repos.PricingRuleRepo,
	invoices repos.InvoiceRepo,
	numbers *Numberer,
	bookings BookingService,
	eventBus bus.Bus,
	mail sendgrid.Client,
) QuotationService {
	serviceLog := log.With("service", "QuotationService")
	return &quotationService{
		db:         db,
		log:        serviceLog,
		tenants:    tenants,
		quotations: quotations,
		opps:       opps,
		spaces:     spaceRepo,
		rules:      rules,
		invoices:   invoices,
		numbers:    numbers,
		bookings:   bookings,
		events:     eventPublisher{bus: eventBus, log: serviceLog},
		mailer:     quotationMailer{client: mail, tenants: tenants, quotations: quotations, log: serviceLog},
	}
}

func (s *quotationService) Create(ctx context.Context, in QuotationInput) (*types.Quotation, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(in.Lines) == 0 {
		return nil, apierr.Invalid("lines_required", "a quotation needs at least one line")
	}
	email := normalizeEmail(in.CustomerEmail)
	if email != "" && !validEmail(email) {
		return nil, apierr.Invalid("invalid_email", "invalid email %q", in.CustomerEmail)
	}
	now := s.clock.now()
	validUntil := now.Add(defaultQuotationValidity)
	if in.ValidUntil != nil {
		validUntil = in.ValidUntil.UTC()
	}
	if !validUntil.After(now) {
		return nil, apierr.Invalid("invalid_valid_until", "valid_until must be in the future")
	}

	var out *types.Quotation
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		t, err := loadTenant(dbc, s.tenants, tenantID)
		if err != nil {
			return err
		}
		if in.OpportunityID != nil {
			opp, err := s.opps.GetByID(dbc, tenantID, *in.OpportunityID)
			if err != nil {
				return fmt.Errorf("load opportunity: %w", err)
			}
			if opp == nil {
				return apierr.NotFound("opportunity_not_found", "opportunity %s not found", *in.OpportunityID)
			}
			if !crm.IsOpenStage(opp.Stage) {
				return apierr.Conflict("opportunity_closed", "opportunity is %s", opp.Stage)
			}
		}

		q := &types.Quotation{
			TenantID:      tenantID,
			OpportunityID: in.OpportunityID,
			Status:        types.QuotationStatusDraft,
			Currency:      t.Currency,
			ValidUntil:    validUntil,
			CustomerName:  strings.TrimSpace(in.CustomerName),
			CustomerEmail: email,
			Notes:         in.Notes,
		}
		for i, li := range in.Lines {
			line, err := s.buildLine(dbc, t, i, li, now)
			if err != nil {
				return err
			}
			q.Lines = append(q.Lines, line)
		}
		applyQuotationTotals(q, t.TaxRateBps)

		number, err := s.numbers.Next(dbc, tenantID, prefixQuotation, now)
		if err != nil {
			return err
		}
		q.Number = number
		if _, err := s.quotations.Create(dbc, q); err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildLine prices one line. Lines with a space and a window go through the
// pricing engine; other lines are quantity * unit less the line discount.
func (s *quotationService) buildLine(dbc dbctx.Context, t *types.Tenant, pos int, li QuotationLineInput, now time.Time) (types.QuotationLine, error) {
	line := types.QuotationLine{
		Position:    pos + 1,
		Description: strings.TrimSpace(li.Description),
		Quantity:    li.Quantity,
		UnitAmount:  li.UnitAmount,
		DiscountBps: li.DiscountBps,
		SpaceID:     li.SpaceID,
		Attendees:   li.Attendees,
	}
	if li.DiscountBps < 0 || li.DiscountBps > 10000 {
		return line, apierr.Invalid("invalid_discount", "line %d: discount must be between 0 and 10000 bps", pos+1)
	}
	if li.SpaceID != nil || li.StartAt != nil || li.EndAt != nil {
		if li.SpaceID == nil || li.StartAt == nil || li.EndAt == nil {
			return line, apierr.Invalid("incomplete_space_line", "line %d: space lines need space_id, start_at and end_at", pos+1)
		}
		start, end := li.StartAt.UTC(), li.EndAt.UTC()
		if !end.After(start) {
			return line, apierr.Invalid("invalid_window", "line %d: end must be after start", pos+1)
		}
		sp, err := s.spaces.GetByID(dbc, t.ID, *li.SpaceID)
		if err != nil {
			return line, fmt.Errorf("load space: %w", err)
		}
		if sp == nil {
			return line, apierr.NotFound("space_not_found", "space %s not found", *li.SpaceID)
		}
		models, err := s.rules.ListForSpace(dbc, t.ID, &sp.ID)
		if err != nil {
			return line, fmt.Errorf("load pricing rules: %w", err)
		}
		rules, err := pricing.FromModels(models)
		if err != nil {
			return line, fmt.Errorf("decode pricing rules: %w", err)
		}
		quote := priceSpace(t, sp, start, end, li.MemberTier, now, rules)
		if line.Description == "" {
			line.Description = fmt.Sprintf("%s %s - %s", sp.Name,
				start.In(t.Location()).Format("2006-01-02 15:04"), end.In(t.Location()).Format("15:04"))
		}
		if line.Attendees <= 0 {
			line.Attendees = 1
		}
		line.Quantity = 1
		line.UnitAmount = quote.Subtotal
		line.StartAt, line.EndAt = &start, &end
	} else {
		if line.Description == "" {
			return line, apierr.Invalid("description_required", "line %d: description is required", pos+1)
		}
		if li.Quantity <= 0 {
			return line, apierr.Invalid("invalid_quantity", "line %d: quantity must be positive", pos+1)
		}
		if li.UnitAmount < 0 {
			return line, apierr.Invalid("invalid_amount", "line %d: unit amount cannot be negative", pos+1)
		}
	}
	gross := line.Quantity * line.UnitAmount
	line.LineAmount = gross - money.Bps(gross, line.DiscountBps)
	return line, nil
}

func applyQuotationTotals(q *types.Quotation, taxBps int64) {
	var subtotal, discount int64
	for _, l := range q.Lines {
		subtotal += l.LineAmount
		discount += l.Quantity*l.UnitAmount - l.LineAmount
	}
	q.SubtotalAmount = subtotal
	q.DiscountAmount = discount
	q.TaxAmount = money.Bps(subtotal, taxBps)
	q.TotalAmount = subtotal + q.TaxAmount
}

func (s *quotationService) Get(ctx context.Context, id uuid.UUID) (*types.Quotation, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	q, err := s.quotations.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load quotation: %w", err)
	}
	if q == nil {
		return nil, apierr.NotFound("quotation_not_found", "quotation %s not found", id)
	}
	return q, nil
}

func (s *quotationService) List(ctx context.Context, f repos.QuotationFilter) ([]*types.Quotation, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.quotations.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *quotationService) lock(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Quotation, error) {
	q, err := s.quotations.GetForUpdate(dbc, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load quotation: %w", err)
	}
	if q == nil {
		return nil, apierr.NotFound("quotation_not_found", "quotation %s not found", id)
	}
	return q, nil
}

func (s *quotationService) Send(ctx context.Context, id uuid.UUID) (*types.Quotation, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Quotation
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		q, err := s.lock(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if q.Status != types.QuotationStatusDraft {
			return apierr.Conflict("invalid_quotation_status", "only draft quotations can be sent (status %s)", q.Status)
		}
		now := s.clock.now()
		if q.ExpiredAt(now) {
			return apierr.Conflict("quotation_expired", "quotation %s is past its validity", q.Number)
		}
		if err := s.quotations.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":     types.QuotationStatusSent,
			"sent_at":    now,
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("send quotation: %w", err)
		}
		q.Status = types.QuotationStatusSent
		q.SentAt = timePtr(now)
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mailer.deliver(ctx, out)
	return out, nil
}

// Accept books every space line, bills the quotation and wins the linked
// opportunity in one transaction.
func (s *quotationService) Accept(ctx context.Context, id uuid.UUID) (*AcceptedQuotation, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var (
		res     *AcceptedQuotation
		expired bool
	)
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		t, err := loadTenant(dbc, s.tenants, tenantID)
		if err != nil {
			return err
		}
		q, err := s.lock(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if q.Status != types.QuotationStatusSent {
			return apierr.Conflict("invalid_quotation_status", "only sent quotations can be accepted (status %s)", q.Status)
		}
		now := s.clock.now()
		if q.ExpiredAt(now) {
			if err := s.quotations.UpdateFields(dbc, tenantID, id, map[string]interface{}{
				"status":     types.QuotationStatusExpired,
				"updated_at": now,
			}); err != nil {
				return fmt.Errorf("expire quotation: %w", err)
			}
			expired = true
			return nil
		}

		out := &AcceptedQuotation{Quotation: q, Bookings: []*types.Booking{}}
		for i := range q.Lines {
			line := &q.Lines[i]
			if !line.IsSpaceLine() || line.BookingID != nil {
				continue
			}
			name := q.CustomerName
			if name == "" {
				name = "Quotation " + q.Number
			}
			price := line.LineAmount
			b, err := s.bookings.ReserveTx(dbc, t, Reservation{
				BookingInput: BookingInput{
					SpaceID:     *line.SpaceID,
					MemberName:  name,
					MemberEmail: q.CustomerEmail,
					Attendees:   line.Attendees,
					StartAt:     *line.StartAt,
					EndAt:       *line.EndAt,
					Notes:       "Quotation " + q.Number,
				},
				Status:      types.BookingStatusConfirmed,
				QuotationID: &q.ID,
				PriceAmount: &price,
			})
			if err != nil {
				return fmt.Errorf("line %d: %w", line.Position, err)
			}
			if err := s.quotations.SetLineBooking(dbc, line.ID, b.ID); err != nil {
				return fmt.Errorf("link booking: %w", err)
			}
			line.BookingID = &b.ID
			out.Bookings = append(out.Bookings, b)
		}

		if q.TotalAmount > 0 {
			inv, err := issueInvoice(dbc, s.invoices, s.numbers, tenantID, invoiceDraft{
				CustomerName:  q.CustomerName,
				CustomerEmail: q.CustomerEmail,
				Currency:      q.Currency,
				Amount:        q.TotalAmount,
			}, now)
			if err != nil {
				return err
			}
			out.Invoice = inv
		}

		if q.OpportunityID != nil {
			opp, err := lockOpportunity(dbc, s.opps, tenantID, *q.OpportunityID)
			if err != nil {
				return err
			}
			switch {
			case opp.Stage == crm.StageWon:
			case crm.IsOpenStage(opp.Stage):
				if err := moveStage(dbc, s.opps, opp, crm.StageWon, "", now); err != nil {
					return err
				}
			default:
				return apierr.Conflict("opportunity_closed", "linked opportunity is %s", opp.Stage)
			}
		}

		if err := s.quotations.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":      types.QuotationStatusAccepted,
			"accepted_at": now,
			"updated_at":  now,
		}); err != nil {
			return fmt.Errorf("accept quotation: %w", err)
		}
		q.Status = types.QuotationStatusAccepted
		q.AcceptedAt = timePtr(now)
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, apierr.Conflict("quotation_expired", "quotation %s is past its validity", id)
	}
	s.bookings.AfterCommit(ctx, realtime.SSEEventBookingConfirmed, res.Bookings...)
	s.events.publish(ctx, tenantID, realtime.SSEEventQuotationAccepted, res.Quotation)
	s.log.WithContext(ctx).Info("Quotation accepted", "quotation_id", id, "bookings", len(res.Bookings))
	return res, nil
}

func (s *quotationService) Reject(ctx context.Context, id uuid.UUID) (*types.Quotation, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Quotation
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		q, err := s.lock(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if q.Status != types.QuotationStatusSent && q.Status != types.QuotationStatusDraft {
			return apierr.Conflict("invalid_quotation_status", "quotation is %s", q.Status)
		}
		now := s.clock.now()
		if err := s.quotations.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":     types.QuotationStatusRejected,
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("reject quotation: %w", err)
		}
		q.Status = types.QuotationStatusRejected
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *quotationService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.quotations.ExpireDue(dbctx.Context{Ctx: ctx}, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire quotations: %w", err)
	}
	if n > 0 {
		s.log.Info("Quotations expired", "count", n)
	}
	return n, nil
}

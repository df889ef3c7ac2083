package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/booking/availability"
	"github.com/yungbote/deskbase-backend/internal/booking/pricing"
	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/observability"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/platform/money"
	"github.com/yungbote/deskbase-backend/internal/platform/redisx"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
)

const (
	DefaultHoldTTL   = 15 * time.Minute
	spaceLockTTL     = 10 * time.Second
	expireHoldsBatch = 500
)

type BookingInput struct {
	SpaceID     uuid.UUID `json:"space_id"`
	MemberName  string    `json:"member_name"`
	MemberEmail string    `json:"member_email"`
	MemberTier  string    `json:"member_tier"`
	Attendees   int       `json:"attendees"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Notes       string    `json:"notes"`
	// Confirm books straight into confirmed instead of placing a hold.
	Confirm bool `json:"confirm"`
}

type AvailabilityQuery struct {
	SpaceID   uuid.UUID `json:"space_id"`
	StartAt   time.Time `json:"start_at"`
	EndAt     time.Time `json:"end_at"`
	Attendees int       `json:"attendees"`
}

type Availability struct {
	Available bool                `json:"available"`
	Code      string              `json:"code,omitempty"`
	Message   string              `json:"message,omitempty"`
	Conflicts []availability.Busy `json:"conflicts"`
}

type QuoteQuery struct {
	SpaceID    uuid.UUID `json:"space_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	MemberTier string    `json:"member_tier"`
}

// Reservation is a booking written inside a caller-owned transaction.
type Reservation struct {
	BookingInput
	Status      string
	QuotationID *uuid.UUID
	// PriceAmount, when set, replaces the engine price (tax is still added).
	PriceAmount *int64
}

type BookingService interface {
	CheckAvailability(ctx context.Context, q AvailabilityQuery) (*Availability, error)
	Quote(ctx context.Context, q QuoteQuery) (*pricing.Quote, error)
	Create(ctx context.Context, in BookingInput) (*types.Booking, error)
	Confirm(ctx context.Context, id uuid.UUID) (*types.Booking, *types.Invoice, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*types.Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Booking, error)
	List(ctx context.Context, f repos.BookingFilter) ([]*types.Booking, int64, error)
	FreeSlots(ctx context.Context, spaceID uuid.UUID, day string, slot, step time.Duration) ([]availability.Interval, error)
	// ExpireHolds releases pending bookings of every tenant whose hold ran out.
	ExpireHolds(ctx context.Context, now time.Time) (int, error)

	// ReserveTx validates, prices and stores a booking using dbc's transaction.
	// Callers must run AfterCommit once the transaction commits.
	ReserveTx(dbc dbctx.Context, t *types.Tenant, r Reservation) (*types.Booking, error)
	AfterCommit(ctx context.Context, event realtime.SSEEvent, bookings ...*types.Booking)
}

type bookingService struct {
	db       *gorm.DB
	log      *logger.Logger
	tenants  repos.TenantRepo
	spaces   repos.SpaceRepo
	bookings repos.BookingRepo
	rules    repos.PricingRuleRepo
	invoices repos.InvoiceRepo
	numbers  *Numberer
	locker   redisx.Locker
	cache    *redisx.JSONCache
	events   eventPublisher
	metrics  *observability.Metrics
	holdTTL  time.Duration
	clock    clock
}

func NewBookingService(
	db *gorm.DB,
	log *logger.Logger,
	tenants repos.TenantRepo,
	spaceRepo repos.SpaceRepo,
	bookings repos.BookingRepo,
	rules repos.PricingRuleRepo,
	invoices repos.InvoiceRepo,
	numbers *Numberer,
	locker redisx.Locker,
	cache *redisx.JSONCache,
	eventBus bus.Bus,
	metrics *observability.Metrics,
	holdTTL time.Duration,
) BookingService {
	serviceLog := log.With("service", "BookingService")
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	if locker == nil {
		locker = redisx.NewLocalLocker()
	}
	if cache == nil {
		cache = redisx.NewJSONCache(nil, "", time.Minute)
	}
	return &bookingService{
		db:       db,
		log:      serviceLog,
		tenants:  tenants,
		spaces:   spaceRepo,
		bookings: bookings,
		rules:    rules,
		invoices: invoices,
		numbers:  numbers,
		locker:   locker,
		cache:    cache,
		events:   eventPublisher{bus: eventBus, log: serviceLog},
		metrics:  metrics,
		holdTTL:  holdTTL,
	}
}

func (s *bookingService) loadSpace(dbc dbctx.Context, tenantID, spaceID uuid.UUID, lock bool) (*types.Space, error) {
	var (
		sp  *types.Space
		err error
	)
	if lock {
		sp, err = s.spaces.GetForUpdate(dbc, tenantID, spaceID)
	} else {
		sp, err = s.spaces.GetByID(dbc, tenantID, spaceID)
	}
	if err != nil {
		return nil, fmt.Errorf("load space: %w", err)
	}
	if sp == nil {
		return nil, apierr.NotFound("space_not_found", "space %s not found", spaceID)
	}
	return sp, nil
}

func violationError(err error) error {
	var v *availability.Violation
	if errors.As(err, &v) {
		return apierr.Invalid(v.Code, "%s", v.Message)
	}
	return err
}

func (s *bookingService) busy(dbc dbctx.Context, tenantID uuid.UUID, sp *types.Space, from, to time.Time) ([]availability.Busy, error) {
	buf := sp.Buffer()
	existing, err := s.bookings.ListActiveInRange(dbc, tenantID, sp.ID, from.Add(-buf), to.Add(buf))
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	return availability.FromBookings(existing, s.clock.now()), nil
}

func (s *bookingService) CheckAvailability(ctx context.Context, q AvailabilityQuery) (*Availability, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	t, err := loadTenant(dbc, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	sp, err := s.loadSpace(dbc, tenantID, q.SpaceID, false)
	if err != nil {
		return nil, err
	}
	attendees := q.Attendees
	if attendees <= 0 {
		attendees = 1
	}
	req := availability.Request{Start: q.StartAt.UTC(), End: q.EndAt.UTC(), Attendees: attendees}
	out := &Availability{Available: true, Conflicts: []availability.Busy{}}
	if err := availability.Validate(req, sp, t.Location(), s.clock.now()); err != nil {
		var v *availability.Violation
		if !errors.As(err, &v) {
			return nil, err
		}
		out.Available = false
		out.Code, out.Message = v.Code, v.Message
		return out, nil
	}
	existing, err := s.busy(dbc, tenantID, sp, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if conflicts := availability.Conflicts(req, existing, sp.Buffer()); len(conflicts) > 0 {
		out.Available = false
		out.Code = "booking_conflict"
		out.Message = "the space is already booked in that window"
		out.Conflicts = conflicts
	}
	return out, nil
}

func (s *bookingService) Quote(ctx context.Context, q QuoteQuery) (*pricing.Quote, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !q.EndAt.After(q.StartAt) {
		return nil, apierr.Invalid(availability.CodeInvalidWindow, "end must be after start")
	}
	dbc := dbctx.Context{Ctx: ctx}
	t, err := loadTenant(dbc, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	sp, err := s.loadSpace(dbc, tenantID, q.SpaceID, false)
	if err != nil {
		return nil, err
	}
	quote, err := s.price(dbc, t, sp, q.StartAt.UTC(), q.EndAt.UTC(), q.MemberTier)
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (s *bookingService) price(dbc dbctx.Context, t *types.Tenant, sp *types.Space, start, end time.Time, tier string) (pricing.Quote, error) {
	models, err := s.rules.ListForSpace(dbc, t.ID, &sp.ID)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("load pricing rules: %w", err)
	}
	rules, err := pricing.FromModels(models)
	if err != nil {
		return pricing.Quote{}, fmt.Errorf("decode pricing rules: %w", err)
	}
	return priceSpace(t, sp, start, end, tier, s.clock.now(), rules), nil
}

func priceSpace(t *types.Tenant, sp *types.Space, start, end time.Time, tier string, now time.Time, rules []pricing.Rule) pricing.Quote {
	return pricing.Evaluate(pricing.Input{
		Currency:              t.Currency,
		HourlyRate:            sp.HourlyRate,
		DailyRate:             sp.DailyRate,
		DailyThresholdMinutes: sp.DailyThresholdMinutes,
		TaxRateBps:            t.TaxRateBps,
		Start:                 start,
		End:                   end,
		BookedAt:              now,
		MemberTier:            strings.TrimSpace(tier),
		Location:              t.Location(),
		Rules:                 rules,
	})
}

func (s *bookingService) ReserveTx(dbc dbctx.Context, t *types.Tenant, r Reservation) (*types.Booking, error) {
	if dbc.Tx == nil {
		return nil, errors.New("reserve booking: transaction required")
	}
	name := strings.TrimSpace(r.MemberName)
	if name == "" {
		return nil, apierr.Invalid("member_name_required", "member name is required")
	}
	email := normalizeEmail(r.MemberEmail)
	if email != "" && !validEmail(email) {
		return nil, apierr.Invalid("invalid_email", "invalid email %q", r.MemberEmail)
	}
	status := r.Status
	if status == "" {
		status = types.BookingStatusPending
	}

	sp, err := s.loadSpace(dbc, t.ID, r.SpaceID, true)
	if err != nil {
		return nil, err
	}
	now := s.clock.now()
	req := availability.Request{Start: r.StartAt.UTC(), End: r.EndAt.UTC(), Attendees: r.Attendees}
	if err := availability.Validate(req, sp, t.Location(), now); err != nil {
		return nil, violationError(err)
	}
	existing, err := s.busy(dbc, t.ID, sp, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if conflicts := availability.Conflicts(req, existing, sp.Buffer()); len(conflicts) > 0 {
		return nil, apierr.Conflict("booking_conflict", "space %s is already booked from %s to %s",
			sp.Name, conflicts[0].Start.Format(time.RFC3339), conflicts[0].End.Format(time.RFC3339))
	}

	var subtotal, tax int64
	if r.PriceAmount != nil {
		subtotal = *r.PriceAmount
		tax = money.Bps(subtotal, t.TaxRateBps)
	} else {
		q, err := s.price(dbc, t, sp, req.Start, req.End, r.MemberTier)
		if err != nil {
			return nil, err
		}
		for _, adj := range q.Adjustments {
			s.metrics.IncPricingRule(adj.Kind)
		}
		subtotal, tax = q.Subtotal, q.TaxAmount
	}

	b := &types.Booking{
		TenantID:    t.ID,
		SpaceID:     sp.ID,
		MemberName:  name,
		MemberEmail: email,
		MemberTier:  strings.TrimSpace(r.MemberTier),
		Attendees:   r.Attendees,
		StartAt:     req.Start,
		EndAt:       req.End,
		Status:      status,
		PriceAmount: subtotal,
		TaxAmount:   tax,
		TotalAmount: subtotal + tax,
		Currency:    t.Currency,
		QuotationID: r.QuotationID,
		Notes:       r.Notes,
	}
	switch status {
	case types.BookingStatusPending:
		b.HoldExpiresAt = timePtr(now.Add(s.holdTTL))
	case types.BookingStatusConfirmed:
		b.ConfirmedAt = timePtr(now)
	default:
		return nil, fmt.Errorf("reserve booking: unsupported status %q", status)
	}
	if _, err := s.bookings.Create(dbc, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return b, nil
}

func (s *bookingService) Create(ctx context.Context, in BookingInput) (*types.Booking, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := observability.Tracer().Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("tenant.id", tenantID.String()),
		attribute.String("space.id", in.SpaceID.String()),
	)

	release, err := s.locker.Acquire(ctx, spaceLockKey(tenantID, in.SpaceID), spaceLockTTL)
	if err != nil {
		s.metrics.IncBooking("lock_busy")
		if errors.Is(err, redisx.ErrLockHeld) {
			return nil, apierr.Conflict("space_busy", "another booking for this space is in progress, retry shortly")
		}
		return nil, fmt.Errorf("lock space: %w", err)
	}
	defer release()

	status := types.BookingStatusPending
	if in.Confirm {
		status = types.BookingStatusConfirmed
	}
	var created *types.Booking
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		t, err := loadTenant(dbc, s.tenants, tenantID)
		if err != nil {
			return err
		}
		b, err := s.ReserveTx(dbc, t, Reservation{BookingInput: in, Status: status})
		if err != nil {
			return err
		}
		if b.Status == types.BookingStatusConfirmed {
			if _, err := issueBookingInvoice(dbc, s.invoices, s.numbers, b, s.clock.now()); err != nil {
				return err
			}
		}
		created = b
		return nil
	})
	if err != nil {
		s.metrics.IncBooking(outcomeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	s.metrics.IncBooking(created.Status)
	s.log.WithContext(ctx).Info("Booking created", "booking_id", created.ID, "space_id", created.SpaceID, "status", created.Status)
	s.AfterCommit(ctx, realtime.SSEEventBookingCreated, created)
	return created, nil
}

func outcomeOf(err error) string {
	if ae, ok := apierr.As(err); ok && ae.Code != "" {
		return ae.Code
	}
	return "error"
}

func spaceLockKey(tenantID, spaceID uuid.UUID) string {
	return "space:" + tenantID.String() + ":" + spaceID.String()
}

func (s *bookingService) Confirm(ctx context.Context, id uuid.UUID) (*types.Booking, *types.Invoice, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	var (
		out     *types.Booking
		invoice *types.Invoice
		expired bool
	)
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		b, err := s.lockBooking(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if b.Status != types.BookingStatusPending {
			return apierr.Conflict("invalid_booking_status", "booking is %s", b.Status)
		}
		now := s.clock.now()
		if b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt) {
			// Persist the expiry; the caller still gets a conflict.
			if err := s.bookings.UpdateFields(dbc, tenantID, id, map[string]interface{}{
				"status":     types.BookingStatusExpired,
				"updated_at": now,
			}); err != nil {
				return fmt.Errorf("expire booking: %w", err)
			}
			b.Status = types.BookingStatusExpired
			out = b
			expired = true
			return nil
		}
		if err := s.bookings.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":          types.BookingStatusConfirmed,
			"confirmed_at":    now,
			"hold_expires_at": nil,
			"updated_at":      now,
		}); err != nil {
			return fmt.Errorf("confirm booking: %w", err)
		}
		b.Status = types.BookingStatusConfirmed
		b.ConfirmedAt = timePtr(now)
		b.HoldExpiresAt = nil
		inv, err := issueBookingInvoice(dbc, s.invoices, s.numbers, b, now)
		if err != nil {
			return err
		}
		out, invoice = b, inv
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if expired {
		s.metrics.IncBooking(types.BookingStatusExpired)
		s.AfterCommit(ctx, realtime.SSEEventBookingExpired, out)
		return nil, nil, apierr.Conflict("hold_expired", "the hold on booking %s has expired", id)
	}
	s.metrics.IncBooking(types.BookingStatusConfirmed)
	s.AfterCommit(ctx, realtime.SSEEventBookingConfirmed, out)
	return out, invoice, nil
}

func (s *bookingService) lockBooking(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Booking, error) {
	b, err := s.bookings.GetForUpdate(dbc, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b == nil {
		return nil, apierr.NotFound("booking_not_found", "booking %s not found", id)
	}
	return b, nil
}

func (s *bookingService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*types.Booking, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Booking
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		b, err := s.lockBooking(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if !b.IsActive() {
			return apierr.Conflict("invalid_booking_status", "booking is %s", b.Status)
		}
		now := s.clock.now()
		reason = strings.TrimSpace(reason)
		if err := s.bookings.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":          types.BookingStatusCancelled,
			"cancelled_at":    now,
			"cancel_reason":   reason,
			"hold_expires_at": nil,
			"updated_at":      now,
		}); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		b.Status = types.BookingStatusCancelled
		b.CancelledAt = timePtr(now)
		b.CancelReason = reason
		b.HoldExpiresAt = nil

		inv, err := s.invoices.GetActiveByBooking(dbc, tenantID, id)
		if err != nil {
			return fmt.Errorf("load booking invoice: %w", err)
		}
		if inv != nil {
			if inv.PaidAmount == 0 {
				if err := voidInvoice(dbc, s.invoices, inv, now); err != nil {
					return err
				}
			} else {
				s.log.WithContext(ctx).Warn("Cancelled booking has a paid invoice", "booking_id", id, "invoice_id", inv.ID)
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncBooking(types.BookingStatusCancelled)
	s.AfterCommit(ctx, realtime.SSEEventBookingCancelled, out)
	return out, nil
}

func (s *bookingService) Get(ctx context.Context, id uuid.UUID) (*types.Booking, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	if b == nil {
		return nil, apierr.NotFound("booking_not_found", "booking %s not found", id)
	}
	return b, nil
}

func (s *bookingService) List(ctx context.Context, f repos.BookingFilter) ([]*types.Booking, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	if f.From != nil && f.To != nil && !f.To.After(*f.From) {
		return nil, 0, apierr.Invalid("invalid_range", "to must be after from")
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.bookings.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *bookingService) FreeSlots(ctx context.Context, spaceID uuid.UUID, day string, slot, step time.Duration) ([]availability.Interval, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	t, err := loadTenant(dbc, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	loc := t.Location()
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(day), loc)
	if err != nil {
		return nil, apierr.Invalid("invalid_day", "day must be YYYY-MM-DD")
	}
	sp, err := s.loadSpace(dbc, tenantID, spaceID, false)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return []availability.Interval{}, nil
	}

	var busy []availability.Busy
	key := busyCacheKey(tenantID, spaceID, date.Format("2006-01-02"))
	if err := s.cache.GetOrFill(ctx, key, &busy, func(ctx context.Context) (any, error) {
		return s.busy(dbctx.Context{Ctx: ctx}, tenantID, sp, date, date.AddDate(0, 0, 1))
	}); err != nil {
		return nil, err
	}

	now := s.clock.now()
	slots, err := availability.FreeSlots(date, sp, loc, availability.Live(busy, now), slot, step)
	if err != nil {
		return nil, violationError(err)
	}
	out := slots[:0]
	for _, sl := range slots {
		if !sl.Start.Before(now) {
			out = append(out, sl)
		}
	}
	return out, nil
}

func busyCacheKey(tenantID, spaceID uuid.UUID, day string) string {
	return "busy:" + tenantID.String() + ":" + spaceID.String() + ":" + day
}

func (s *bookingService) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	due, err := s.bookings.ListExpiredHolds(dbctx.Context{Ctx: ctx}, now.UTC(), expireHoldsBatch)
	if err != nil {
		return 0, fmt.Errorf("list expired holds: %w", err)
	}
	expired := make([]*types.Booking, 0, len(due))
	for _, b := range due {
		changed, err := s.bookings.ExpireHold(dbctx.Context{Ctx: ctx}, b.TenantID, b.ID, now.UTC())
		if err != nil {
			return len(expired), fmt.Errorf("expire booking %s: %w", b.ID, err)
		}
		if !changed {
			// confirmed or cancelled since it was listed
			continue
		}
		b.Status = types.BookingStatusExpired
		expired = append(expired, b)
		s.metrics.IncBooking(types.BookingStatusExpired)
	}
	if len(expired) > 0 {
		s.log.Info("Expired booking holds", "count", len(expired))
		s.AfterCommit(ctx, realtime.SSEEventBookingExpired, expired...)
	}
	return len(expired), nil
}

// AfterCommit drops cached availability of the days each booking touches and
// publishes the booking event.
func (s *bookingService) AfterCommit(ctx context.Context, event realtime.SSEEvent, bookings ...*types.Booking) {
	locs := map[uuid.UUID]*time.Location{}
	for _, b := range bookings {
		if b == nil {
			continue
		}
		loc, ok := locs[b.TenantID]
		if !ok {
			loc = time.UTC
			if t, err := s.tenants.GetByID(dbctx.Context{Ctx: ctx}, b.TenantID); err == nil && t != nil {
				loc = t.Location()
			}
			locs[b.TenantID] = loc
		}
		s.cache.Invalidate(ctx, bookingCacheKeys(b, loc)...)
		s.events.publish(ctx, b.TenantID, event, b)
	}
}

// bookingCacheKeys covers the local days from the day before the start to
// the day after the end, which includes any buffer spill-over.
func bookingCacheKeys(b *types.Booking, loc *time.Location) []string {
	start := b.StartAt.In(loc)
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -1)
	last := b.EndAt.In(loc).AddDate(0, 0, 1)
	var keys []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		keys = append(keys, busyCacheKey(b.TenantID, b.SpaceID, d.Format("2006-01-02")))
	}
	return keys
}

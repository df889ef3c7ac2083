package services

import (
	"testing"
	"time"

	"github.com/yungbote/deskbase-backend/internal/booking/availability"
	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/realtime"
)

func TestBookingCreateHoldAndPrice(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, 2*time.Hour)

	b, err := h.bookings.Create(h.ctx, BookingInput{
		SpaceID:     h.space.ID,
		MemberName:  "Ada Lovelace",
		MemberEmail: " Ada@Example.com ",
		Attendees:   4,
		StartAt:     start,
		EndAt:       end,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != types.BookingStatusPending || b.HoldExpiresAt == nil {
		t.Fatalf("want pending hold, got status=%s hold=%v", b.Status, b.HoldExpiresAt)
	}
	if b.MemberEmail != "ada@example.com" {
		t.Fatalf("email not normalized: %q", b.MemberEmail)
	}
	// 2h at 40.00 plus 20% tax
	if b.PriceAmount != 8000 || b.TaxAmount != 1600 || b.TotalAmount != 9600 {
		t.Fatalf("price: got %d + %d = %d", b.PriceAmount, b.TaxAmount, b.TotalAmount)
	}
	if got := h.events.count(realtime.SSEEventBookingCreated); got != 1 {
		t.Fatalf("created events: want=1 got=%d", got)
	}

	inv, _, err := h.billing.ListInvoices(h.ctx, repos.InvoiceFilter{BookingID: &b.ID})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(inv) != 0 {
		t.Fatalf("pending bookings are not invoiced, got %d invoices", len(inv))
	}
}

func TestBookingConflictsRespectBuffer(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, 2*time.Hour)
	if _, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "A", Attendees: 1, StartAt: start, EndAt: end}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// inside the 15 minute buffer
	_, err := h.bookings.Create(h.ctx, BookingInput{
		SpaceID: h.space.ID, MemberName: "B", Attendees: 1,
		StartAt: end.Add(10 * time.Minute), EndAt: end.Add(70 * time.Minute),
	})
	wantCode(t, err, "booking_conflict")

	av, err := h.bookings.CheckAvailability(h.ctx, AvailabilityQuery{
		SpaceID: h.space.ID, StartAt: end.Add(10 * time.Minute), EndAt: end.Add(70 * time.Minute),
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if av.Available || len(av.Conflicts) != 1 {
		t.Fatalf("want one conflict, got available=%v conflicts=%d", av.Available, len(av.Conflicts))
	}

	// half-open intervals: starting exactly when the buffer ends is fine
	if _, err := h.bookings.Create(h.ctx, BookingInput{
		SpaceID: h.space.ID, MemberName: "C", Attendees: 1,
		StartAt: end.Add(15 * time.Minute), EndAt: end.Add(75 * time.Minute),
	}); err != nil {
		t.Fatalf("back-to-back booking after buffer: %v", err)
	}
}

func TestBookingValidationErrors(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		name  string
		start time.Time
		dur   time.Duration
		seats int
		code  string
	}{
		{name: "before opening", start: mustStart(7, 6), dur: time.Hour, seats: 1, code: availability.CodeOutsideHours},
		{name: "too short", start: mustStart(7, 10), dur: 15 * time.Minute, seats: 1, code: availability.CodeTooShort},
		{name: "over capacity", start: mustStart(7, 10), dur: time.Hour, seats: 9, code: availability.CodeOverCapacity},
		{name: "in the past", start: mustStart(-1, 10), dur: time.Hour, seats: 1, code: availability.CodeInPast},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.bookings.Create(h.ctx, BookingInput{
				SpaceID: h.space.ID, MemberName: "X", Attendees: tc.seats,
				StartAt: tc.start, EndAt: tc.start.Add(tc.dur),
			})
			wantCode(t, err, tc.code)
		})
	}
}

func mustStart(days, hour int) time.Time {
	s, _ := slot(days, hour, 0)
	return s
}

func TestBookingConfirmIssuesInvoice(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, 2*time.Hour)
	b, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Ada", Attendees: 2, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	confirmed, inv, err := h.bookings.Confirm(h.ctx, b.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != types.BookingStatusConfirmed || confirmed.HoldExpiresAt != nil {
		t.Fatalf("unexpected booking state: %s hold=%v", confirmed.Status, confirmed.HoldExpiresAt)
	}
	if inv == nil || inv.Amount != 9600 || inv.Status != types.InvoiceStatusOpen {
		t.Fatalf("unexpected invoice: %+v", inv)
	}
	wantNumber := FormatNumber(prefixInvoice, time.Now().UTC().Year(), 1)
	if inv.Number != wantNumber {
		t.Fatalf("invoice number: want=%s got=%s", wantNumber, inv.Number)
	}

	_, _, err = h.bookings.Confirm(h.ctx, b.ID)
	wantCode(t, err, "invalid_booking_status")
}

func TestBookingConfirmAfterHoldExpiry(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, time.Hour)
	b, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Ada", Attendees: 1, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	h.setClock(b.HoldExpiresAt.Add(time.Second))
	_, _, err = h.bookings.Confirm(h.ctx, b.ID)
	wantCode(t, err, "hold_expired")

	got, err := h.bookings.Get(h.ctx, b.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.BookingStatusExpired {
		t.Fatalf("expiry must persist, got %s", got.Status)
	}
	if h.events.count(realtime.SSEEventBookingExpired) != 1 {
		t.Fatalf("want one expired event")
	}
}

func TestBookingLapsedHoldDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, time.Hour)
	held, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Ada", Attendees: 1, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	day := start.Format("2006-01-02")
	before, err := h.bookings.FreeSlots(h.ctx, h.space.ID, day, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}

	// no sweep has run; the hold is only past its expiry
	h.setClock(held.HoldExpiresAt.Add(time.Hour))

	av, err := h.bookings.CheckAvailability(h.ctx, AvailabilityQuery{SpaceID: h.space.ID, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !av.Available || len(av.Conflicts) != 0 {
		t.Fatalf("lapsed hold still blocks: %+v", av)
	}
	after, err := h.bookings.FreeSlots(h.ctx, h.space.ID, day, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if len(after) <= len(before) {
		t.Fatalf("want the held slots back, got %d before and %d after", len(before), len(after))
	}
	b, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Bob", Attendees: 1, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create over lapsed hold: %v", err)
	}
	if b.ID == held.ID || b.Status != types.BookingStatusPending {
		t.Fatalf("unexpected booking: %+v", b)
	}
}

func TestBookingCancelVoidsUnpaidInvoice(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 14, time.Hour)
	b, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Ada", Attendees: 1, StartAt: start, EndAt: end, Confirm: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != types.BookingStatusConfirmed {
		t.Fatalf("want confirmed, got %s", b.Status)
	}

	cancelled, err := h.bookings.Cancel(h.ctx, b.ID, "  plans changed ")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != types.BookingStatusCancelled || cancelled.CancelReason != "plans changed" {
		t.Fatalf("unexpected: %s %q", cancelled.Status, cancelled.CancelReason)
	}
	invs, _, err := h.billing.ListInvoices(h.ctx, repos.InvoiceFilter{BookingID: &b.ID})
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if len(invs) != 1 || invs[0].Status != types.InvoiceStatusVoid {
		t.Fatalf("want the invoice voided, got %+v", invs)
	}

	// the slot is free again
	if _, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Bob", Attendees: 1, StartAt: start, EndAt: end}); err != nil {
		t.Fatalf("rebook cancelled slot: %v", err)
	}
	_, err = h.bookings.Cancel(h.ctx, b.ID, "")
	wantCode(t, err, "invalid_booking_status")
}

func TestBookingExpireHolds(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 9, time.Hour)
	held, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "A", Attendees: 1, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	start2, end2 := slot(7, 15, time.Hour)
	if _, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "B", Attendees: 1, StartAt: start2, EndAt: end2, Confirm: true}); err != nil {
		t.Fatalf("Create confirmed: %v", err)
	}

	n, err := h.bookings.ExpireHolds(h.ctx, time.Now().UTC())
	if err != nil || n != 0 {
		t.Fatalf("nothing due yet: n=%d err=%v", n, err)
	}
	n, err = h.bookings.ExpireHolds(h.ctx, held.HoldExpiresAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("ExpireHolds: %v", err)
	}
	if n != 1 {
		t.Fatalf("want one expired hold, got %d", n)
	}
	got, err := h.bookingRepo.GetByID(dbctx.Context{Ctx: h.ctx}, h.tenant.ID, held.ID)
	if err != nil || got.Status != types.BookingStatusExpired {
		t.Fatalf("want expired, got %+v err=%v", got, err)
	}
}

// cancelDuringSweep cancels a booking right after the expiry sweep lists it.
type cancelDuringSweep struct {
	repos.BookingRepo
	cancel func()
}

func (c *cancelDuringSweep) ListExpiredHolds(dbc dbctx.Context, now time.Time, limit int) ([]*types.Booking, error) {
	out, err := c.BookingRepo.ListExpiredHolds(dbc, now, limit)
	if err == nil && c.cancel != nil {
		c.cancel()
	}
	return out, err
}

func TestBookingExpireHoldsKeepsConcurrentCancel(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 9, time.Hour)
	held, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "A", Attendees: 1, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	svc := h.bookings.(*bookingService)
	svc.bookings = &cancelDuringSweep{BookingRepo: h.bookingRepo, cancel: func() {
		if _, err := h.bookings.Cancel(h.ctx, held.ID, "changed plans"); err != nil {
			t.Errorf("Cancel: %v", err)
		}
	}}

	n, err := h.bookings.ExpireHolds(h.ctx, held.HoldExpiresAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("ExpireHolds: %v", err)
	}
	if n != 0 {
		t.Fatalf("cancelled booking counted as expired: %d", n)
	}
	got, err := h.bookingRepo.GetByID(dbctx.Context{Ctx: h.ctx}, h.tenant.ID, held.ID)
	if err != nil || got.Status != types.BookingStatusCancelled {
		t.Fatalf("want cancelled, got %+v err=%v", got, err)
	}
	if h.events.count(realtime.SSEEventBookingExpired) != 0 {
		t.Fatalf("no expiry event for a cancelled booking")
	}
}

func TestBookingFreeSlotsTracksNewBookings(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, 2*time.Hour)
	day := start.Format("2006-01-02")

	slots, err := h.bookings.FreeSlots(h.ctx, h.space.ID, day, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	if len(slots) != 12 {
		t.Fatalf("open 08:00-20:00: want 12 slots, got %d", len(slots))
	}

	if _, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "A", Attendees: 1, StartAt: start, EndAt: end}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	slots, err = h.bookings.FreeSlots(h.ctx, h.space.ID, day, time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("FreeSlots: %v", err)
	}
	// 10-12 plus the buffer blocks 09-10, 10-11, 11-12 and 12-13
	if len(slots) != 8 {
		t.Fatalf("want 8 slots after booking, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Before(end.Add(15*time.Minute)) && s.End.After(start.Add(-15*time.Minute)) {
			t.Fatalf("slot %v overlaps the buffered booking", s)
		}
	}

	_, err = h.bookings.FreeSlots(h.ctx, h.space.ID, "next tuesday", time.Hour, 0)
	wantCode(t, err, "invalid_day")
}

func TestBookingQuoteAppliesRules(t *testing.T) {
	h := newHarness(t)
	_, err := h.rules.ImportYAML(h.ctx, &h.space.ID, []byte(`
rules:
  - name: members
    kind: member_discount
    conditions:
      tiers: [gold]
    adjustment:
      percent: -25
`))
	if err != nil {
		t.Fatalf("ImportYAML: %v", err)
	}
	start, end := slot(7, 10, 2*time.Hour)

	q, err := h.bookings.Quote(h.ctx, QuoteQuery{SpaceID: h.space.ID, StartAt: start, EndAt: end, MemberTier: "gold"})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Subtotal != 6000 || q.TaxAmount != 1200 || q.Total != 7200 {
		t.Fatalf("gold quote: %d + %d = %d", q.Subtotal, q.TaxAmount, q.Total)
	}
	q, err = h.bookings.Quote(h.ctx, QuoteQuery{SpaceID: h.space.ID, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Subtotal != 8000 {
		t.Fatalf("untiered quote: want 8000, got %d", q.Subtotal)
	}
}

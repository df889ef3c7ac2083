package services

import (
	"testing"
	"time"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/realtime"
)

func confirmedBooking(t *testing.T, h *harness) *types.Booking {
	t.Helper()
	start, end := slot(7, 10, 2*time.Hour)
	b, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Ada", Attendees: 1, StartAt: start, EndAt: end, Confirm: true})
	if err != nil {
		t.Fatalf("Create booking: %v", err)
	}
	return b
}

func bookingInvoice(t *testing.T, h *harness, b *types.Booking) *types.Invoice {
	t.Helper()
	invs, _, err := h.billing.ListInvoices(h.ctx, repos.InvoiceFilter{BookingID: &b.ID})
	if err != nil || len(invs) != 1 {
		t.Fatalf("want one invoice, got %d err=%v", len(invs), err)
	}
	return invs[0]
}

func TestRecordPaymentUpdatesInvoice(t *testing.T) {
	h := newHarness(t)
	b := confirmedBooking(t, h)
	inv := bookingInvoice(t, h, b)
	if inv.Amount != 9600 || inv.DueAt.Sub(inv.IssuedAt) != invoiceDueDays*24*time.Hour {
		t.Fatalf("unexpected invoice: amount=%d due=%v", inv.Amount, inv.DueAt.Sub(inv.IssuedAt))
	}

	p, updated, err := h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: 4000, Reference: inv.Number})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if p.Currency != "EUR" || p.Method != "bank_transfer" {
		t.Fatalf("payment defaults: %s %s", p.Currency, p.Method)
	}
	if updated.PaidAmount != 4000 || updated.Status != types.InvoiceStatusPartiallyPaid {
		t.Fatalf("partial: paid=%d status=%s", updated.PaidAmount, updated.Status)
	}

	_, _, err = h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: 6000})
	wantCode(t, err, "overpayment")
	_, _, err = h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: 100, Currency: "usd"})
	wantCode(t, err, "currency_mismatch")

	_, updated, err = h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: 5600, Method: "card"})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if updated.Status != types.InvoiceStatusPaid || updated.Outstanding() != 0 {
		t.Fatalf("paid: status=%s outstanding=%d", updated.Status, updated.Outstanding())
	}
	if h.events.count(realtime.SSEEventPaymentRecorded) != 2 {
		t.Fatalf("want 2 payment events")
	}

	_, err = h.billing.VoidInvoice(h.ctx, inv.ID)
	wantCode(t, err, "invoice_has_payments")

	payments, total, err := h.billing.ListPayments(h.ctx, repos.PaymentFilter{InvoiceID: &inv.ID})
	if err != nil || total != 2 || len(payments) != 2 {
		t.Fatalf("ListPayments: total=%d err=%v", total, err)
	}
}

func TestInvoiceVoidAndReissue(t *testing.T) {
	h := newHarness(t)
	b := confirmedBooking(t, h)
	inv := bookingInvoice(t, h, b)

	_, err := h.billing.IssueForBooking(h.ctx, b.ID)
	wantCode(t, err, "invoice_exists")

	voided, err := h.billing.VoidInvoice(h.ctx, inv.ID)
	if err != nil {
		t.Fatalf("VoidInvoice: %v", err)
	}
	if voided.Status != types.InvoiceStatusVoid || voided.VoidedAt == nil {
		t.Fatalf("unexpected: %+v", voided)
	}
	_, err = h.billing.VoidInvoice(h.ctx, inv.ID)
	wantCode(t, err, "invoice_void")
	_, _, err = h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: 100})
	wantCode(t, err, "invoice_void")

	again, err := h.billing.IssueForBooking(h.ctx, b.ID)
	if err != nil {
		t.Fatalf("IssueForBooking: %v", err)
	}
	if again.Number == inv.Number || again.Amount != inv.Amount {
		t.Fatalf("reissued invoice: %s (was %s) amount=%d", again.Number, inv.Number, again.Amount)
	}
}

func TestIssueForPendingBookingFails(t *testing.T) {
	h := newHarness(t)
	start, end := slot(7, 10, time.Hour)
	b, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Ada", Attendees: 1, StartAt: start, EndAt: end})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = h.billing.IssueForBooking(h.ctx, b.ID)
	wantCode(t, err, "booking_not_confirmed")
}

func TestMarkOverdue(t *testing.T) {
	h := newHarness(t)
	b := confirmedBooking(t, h)
	inv := bookingInvoice(t, h, b)

	n, err := h.billing.MarkOverdue(h.ctx, inv.DueAt.Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("not due yet: n=%d err=%v", n, err)
	}
	n, err = h.billing.MarkOverdue(h.ctx, inv.DueAt.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("MarkOverdue: n=%d err=%v", n, err)
	}
	got, err := h.billing.GetInvoice(h.ctx, inv.ID)
	if err != nil || got.Status != types.InvoiceStatusOverdue {
		t.Fatalf("want overdue, got %+v err=%v", got, err)
	}

	// partial payment keeps it overdue, settling it clears it
	_, updated, err := h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: 1000})
	if err != nil || updated.Status != types.InvoiceStatusOverdue {
		t.Fatalf("partial on overdue: %+v err=%v", updated, err)
	}
	_, updated, err = h.billing.RecordPayment(h.ctx, PaymentInput{InvoiceID: &inv.ID, Amount: updated.Outstanding()})
	if err != nil || updated.Status != types.InvoiceStatusPaid {
		t.Fatalf("settled: %+v err=%v", updated, err)
	}
}

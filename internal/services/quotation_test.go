package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/crm"
	"github.com/yungbote/deskbase-backend/internal/platform/sendgrid"
	"github.com/yungbote/deskbase-backend/internal/realtime"
)

func quotationInput(h *harness, start, end time.Time) QuotationInput {
	return QuotationInput{
		CustomerName:  "Initech",
		CustomerEmail: "billing@initech.com",
		Lines: []QuotationLineInput{
			{SpaceID: &h.space.ID, StartAt: &start, EndAt: &end, Attendees: 6, DiscountBps: 1000},
			{Description: "Catering", Quantity: 2, UnitAmount: 1500},
		},
	}
}

func TestQuotationCreateTotals(t *testing.T) {
	h := newHarness(t)
	start, end := slot(10, 10, 2*time.Hour)

	q, err := h.quotations.Create(h.ctx, quotationInput(h, start, end))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(q.Lines) != 2 {
		t.Fatalf("want 2 lines, got %d", len(q.Lines))
	}
	room := q.Lines[0]
	if room.Quantity != 1 || room.UnitAmount != 8000 || room.LineAmount != 7200 || room.Description == "" {
		t.Fatalf("space line: %+v", room)
	}
	if q.SubtotalAmount != 10200 || q.DiscountAmount != 800 || q.TaxAmount != 2040 || q.TotalAmount != 12240 {
		t.Fatalf("totals: sub=%d disc=%d tax=%d total=%d", q.SubtotalAmount, q.DiscountAmount, q.TaxAmount, q.TotalAmount)
	}
	if q.Status != types.QuotationStatusDraft || q.Currency != "EUR" {
		t.Fatalf("unexpected: %s %s", q.Status, q.Currency)
	}
	wantNumber := FormatNumber(prefixQuotation, time.Now().UTC().Year(), 1)
	if q.Number != wantNumber {
		t.Fatalf("number: want=%s got=%s", wantNumber, q.Number)
	}

	got, err := h.quotations.Get(h.ctx, q.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Lines) != 2 || got.Lines[0].Position != 1 || got.Lines[1].Description != "Catering" {
		t.Fatalf("stored lines out of order: %+v", got.Lines)
	}
}

func TestQuotationCreateRejectsBadLines(t *testing.T) {
	h := newHarness(t)
	start, _ := slot(10, 10, 0)
	cases := []struct {
		name string
		in   QuotationInput
		code string
	}{
		{name: "no lines", in: QuotationInput{CustomerName: "X"}, code: "lines_required"},
		{name: "zero quantity", in: QuotationInput{Lines: []QuotationLineInput{{Description: "Desk", Quantity: 0, UnitAmount: 100}}}, code: "invalid_quantity"},
		{name: "half a space line", in: QuotationInput{Lines: []QuotationLineInput{{SpaceID: &h.space.ID, StartAt: &start}}}, code: "incomplete_space_line"},
		{name: "discount over 100%", in: QuotationInput{Lines: []QuotationLineInput{{Description: "Desk", Quantity: 1, UnitAmount: 100, DiscountBps: 10001}}}, code: "invalid_discount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.quotations.Create(h.ctx, tc.in)
			wantCode(t, err, tc.code)
		})
	}
}

func TestQuotationAcceptBooksBillsAndWins(t *testing.T) {
	h := newHarness(t)
	opp, err := h.opps.Create(h.ctx, OpportunityInput{Title: "Initech offsite", EstimatedValue: 12000})
	if err != nil {
		t.Fatalf("create opportunity: %v", err)
	}
	start, end := slot(10, 10, 2*time.Hour)
	in := quotationInput(h, start, end)
	in.OpportunityID = &opp.ID
	q, err := h.quotations.Create(h.ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = h.quotations.Accept(h.ctx, q.ID)
	wantCode(t, err, "invalid_quotation_status")

	if _, err := h.quotations.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	res, err := h.quotations.Accept(h.ctx, q.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if res.Quotation.Status != types.QuotationStatusAccepted || res.Quotation.AcceptedAt == nil {
		t.Fatalf("quotation state: %s", res.Quotation.Status)
	}
	if len(res.Bookings) != 1 {
		t.Fatalf("want one booking, got %d", len(res.Bookings))
	}
	b := res.Bookings[0]
	if b.Status != types.BookingStatusConfirmed || b.QuotationID == nil || *b.QuotationID != q.ID {
		t.Fatalf("booking: %+v", b)
	}
	if b.PriceAmount != 7200 || b.TotalAmount != 8640 {
		t.Fatalf("booking keeps the quoted price: %d / %d", b.PriceAmount, b.TotalAmount)
	}
	if res.Invoice == nil || res.Invoice.Amount != 12240 {
		t.Fatalf("invoice: %+v", res.Invoice)
	}

	won, err := h.opps.Get(h.ctx, opp.ID)
	if err != nil {
		t.Fatalf("Get opportunity: %v", err)
	}
	if won.Stage != crm.StageWon || won.Probability != 100 || won.ClosedAt == nil {
		t.Fatalf("opportunity: stage=%s prob=%d", won.Stage, won.Probability)
	}

	stored, err := h.quotations.Get(h.ctx, q.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Lines[0].BookingID == nil || *stored.Lines[0].BookingID != b.ID {
		t.Fatalf("space line not linked to its booking")
	}
	if h.events.count(realtime.SSEEventQuotationAccepted) != 1 || h.events.count(realtime.SSEEventBookingConfirmed) != 1 {
		t.Fatalf("missing accept events")
	}

	_, err = h.quotations.Accept(h.ctx, q.ID)
	wantCode(t, err, "invalid_quotation_status")
}

func TestQuotationAcceptRollsBackOnConflict(t *testing.T) {
	h := newHarness(t)
	start, end := slot(10, 10, 2*time.Hour)
	q, err := h.quotations.Create(h.ctx, quotationInput(h, start, end))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.quotations.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "Walk-in", Attendees: 1, StartAt: start, EndAt: end}); err != nil {
		t.Fatalf("book the slot: %v", err)
	}

	_, err = h.quotations.Accept(h.ctx, q.ID)
	wantCode(t, err, "booking_conflict")

	got, err := h.quotations.Get(h.ctx, q.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.QuotationStatusSent {
		t.Fatalf("failed accept must leave the quotation sent, got %s", got.Status)
	}
	invs, total, err := h.billing.ListInvoices(h.ctx, repos.InvoiceFilter{})
	if err != nil || total != 0 || len(invs) != 0 {
		t.Fatalf("no invoice on a failed accept: total=%d err=%v", total, err)
	}
}

func TestQuotationAcceptAfterValidity(t *testing.T) {
	h := newHarness(t)
	start, end := slot(40, 10, time.Hour)
	validUntil := time.Now().UTC().Add(48 * time.Hour)
	in := quotationInput(h, start, end)
	in.ValidUntil = &validUntil
	q, err := h.quotations.Create(h.ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.quotations.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	h.setClock(validUntil.Add(time.Hour))
	_, err = h.quotations.Accept(h.ctx, q.ID)
	wantCode(t, err, "quotation_expired")

	got, err := h.quotations.Get(h.ctx, q.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.QuotationStatusExpired {
		t.Fatalf("expiry must persist, got %s", got.Status)
	}
}

func TestQuotationValidityEndsAtValidUntil(t *testing.T) {
	h := newHarness(t)
	start, end := slot(40, 10, time.Hour)
	validUntil := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	mk := func() *types.Quotation {
		in := quotationInput(h, start, end)
		in.ValidUntil = &validUntil
		q, err := h.quotations.Create(h.ctx, in)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return q
	}
	draft := mk()
	sent := mk()
	swept := mk()
	for _, q := range []*types.Quotation{sent, swept} {
		if _, err := h.quotations.Send(h.ctx, q.ID); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	// Send and Accept agree: the ValidUntil instant is already too late
	h.setClock(validUntil)
	_, err := h.quotations.Send(h.ctx, draft.ID)
	wantCode(t, err, "quotation_expired")
	_, err = h.quotations.Accept(h.ctx, sent.ID)
	wantCode(t, err, "quotation_expired")

	got, err := h.quotations.Get(h.ctx, sent.ID)
	if err != nil || got.Status != types.QuotationStatusExpired {
		t.Fatalf("want expired at ValidUntil, got %+v err=%v", got, err)
	}
	n, err := h.quotations.ExpireDue(h.ctx, validUntil)
	if err != nil || n != 1 {
		t.Fatalf("ExpireDue at ValidUntil: n=%d err=%v", n, err)
	}
}

func TestQuotationRejectAndExpireDue(t *testing.T) {
	h := newHarness(t)
	start, end := slot(10, 10, time.Hour)

	q1, err := h.quotations.Create(h.ctx, quotationInput(h, start, end))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	rejected, err := h.quotations.Reject(h.ctx, q1.ID)
	if err != nil || rejected.Status != types.QuotationStatusRejected {
		t.Fatalf("Reject: %+v err=%v", rejected, err)
	}
	_, err = h.quotations.Send(h.ctx, q1.ID)
	wantCode(t, err, "invalid_quotation_status")

	q2, err := h.quotations.Create(h.ctx, quotationInput(h, start, end))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.quotations.Send(h.ctx, q2.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	n, err := h.quotations.ExpireDue(h.ctx, q2.ValidUntil.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("ExpireDue: n=%d err=%v", n, err)
	}
	list, total, err := h.quotations.List(h.ctx, repos.QuotationFilter{Status: types.QuotationStatusExpired})
	if err != nil || total != 1 || list[0].ID != q2.ID {
		t.Fatalf("List expired: total=%d err=%v", total, err)
	}
}

type capturingMail struct {
	reqs []sendgrid.SendEmailRequest
	err  error
}

func (m *capturingMail) Send(_ context.Context, req sendgrid.SendEmailRequest) (*sendgrid.SendEmailResult, error) {
	m.reqs = append(m.reqs, req)
	if m.err != nil {
		return nil, m.err
	}
	return &sendgrid.SendEmailResult{StatusCode: 202, MessageID: "m1"}, nil
}

func TestQuotationSendEmailsCustomer(t *testing.T) {
	h := newHarness(t)
	mail := &capturingMail{}
	h.quotations.(*quotationService).mailer.client = mail

	start, end := slot(10, 10, 2*time.Hour)
	q, err := h.quotations.Create(h.ctx, quotationInput(h, start, end))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.quotations.Send(h.ctx, q.ID); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(mail.reqs) != 1 {
		t.Fatalf("want one email, got %d", len(mail.reqs))
	}
	req := mail.reqs[0]
	if req.To[0].Email != "billing@initech.com" || !strings.Contains(req.Subject, q.Number) {
		t.Fatalf("unexpected email: %+v", req)
	}
	if !strings.Contains(req.Text, "Catering x2") || !strings.Contains(req.Text, "Total:    122.40 EUR") {
		t.Fatalf("unexpected body:\n%s", req.Text)
	}
	if req.CustomArgs["quotation_id"] != q.ID.String() {
		t.Fatalf("custom args: %v", req.CustomArgs)
	}

	// provider failures do not undo the send
	mail.err = errors.New("sendgrid down")
	q2, err := h.quotations.Create(h.ctx, quotationInput(h, start, end))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sent, err := h.quotations.Send(h.ctx, q2.ID)
	if err != nil || sent.Status != types.QuotationStatusSent {
		t.Fatalf("Send with failing mail: %+v err=%v", sent, err)
	}
}

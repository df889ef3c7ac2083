package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/platform/money"
	"github.com/yungbote/deskbase-backend/internal/platform/sendgrid"
)

// quotationMailer emails a sent quotation to its customer. Delivery is best
// effort: the quotation stays sent when the mail provider fails.
type quotationMailer struct {
	client     sendgrid.Client
	tenants    repos.TenantRepo
	quotations repos.QuotationRepo
	log        *logger.Logger
}

func (m quotationMailer) deliver(ctx context.Context, q *types.Quotation) {
	if m.client == nil || strings.TrimSpace(q.CustomerEmail) == "" {
		return
	}
	dbc := dbctx.Context{Ctx: ctx}
	full, err := m.quotations.GetByID(dbc, q.TenantID, q.ID)
	if err != nil || full == nil {
		m.log.Warn("Quotation email skipped; reload failed", "quotation_id", q.ID, "error", err)
		return
	}
	t, err := loadTenant(dbc, m.tenants, q.TenantID)
	if err != nil {
		m.log.Warn("Quotation email skipped; tenant lookup failed", "quotation_id", q.ID, "error", err)
		return
	}
	res, err := m.client.Send(ctx, quotationEmail(t, full))
	if err != nil {
		m.log.Warn("Quotation email failed", "quotation_id", q.ID, "error", err)
		return
	}
	m.log.Info("Quotation emailed", "quotation_id", q.ID, "message_id", res.MessageID)
}

func quotationEmail(t *types.Tenant, q *types.Quotation) sendgrid.SendEmailRequest {
	var b strings.Builder
	greeting := strings.TrimSpace(q.CustomerName)
	if greeting == "" {
		greeting = "there"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", greeting)
	fmt.Fprintf(&b, "%s has sent you quotation %s, valid until %s.\n\n", t.Name, q.Number, q.ValidUntil.Format("2006-01-02"))
	for _, l := range q.Lines {
		fmt.Fprintf(&b, "  %s x%d  %s %s\n", l.Description, l.Quantity, money.Format(l.LineAmount), q.Currency)
	}
	if q.DiscountAmount > 0 {
		fmt.Fprintf(&b, "\nDiscount: %s %s", money.Format(q.DiscountAmount), q.Currency)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s %s\n", money.Format(q.SubtotalAmount), q.Currency)
	fmt.Fprintf(&b, "Tax:      %s %s\n", money.Format(q.TaxAmount), q.Currency)
	fmt.Fprintf(&b, "Total:    %s %s\n", money.Format(q.TotalAmount), q.Currency)

	return sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: q.CustomerEmail, Name: q.CustomerName}},
		Subject:    fmt.Sprintf("Quotation %s from %s", q.Number, t.Name),
		Text:       b.String(),
		Categories: []string{"quotation"},
		CustomArgs: map[string]string{"tenant_id": q.TenantID.String(), "quotation_id": q.ID.String()},
	}
}

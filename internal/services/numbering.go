package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
)

const (
	prefixQuotation = "Q"
	prefixInvoice   = "INV"
)

// Numberer hands out gapless per-tenant document numbers ("Q-2026-0001").
// Callers must hold a transaction so a rolled back document returns its number.
type Numberer struct {
	seq repos.SequenceRepo
}

func NewNumberer(seq repos.SequenceRepo) *Numberer {
	return &Numberer{seq: seq}
}

func (n *Numberer) Next(dbc dbctx.Context, tenantID uuid.UUID, prefix string, at time.Time) (string, error) {
	year := at.UTC().Year()
	v, err := n.seq.Next(dbc, tenantID, prefix, year)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, year, v), nil
}

func FormatNumber(prefix string, year int, v int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, v)
}

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
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/ctxutil"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page is a limit/offset window over a list endpoint.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func normalizePage(limit, offset int) Page {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

func tenantFromContext(ctx context.Context) (uuid.UUID, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TenantID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("missing_tenant", "tenant not set in request context")
	}
	return rd.TenantID, nil
}

// inTx runs fn in a transaction, reusing the caller's one when dbc already carries it.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	if dbc.Ctx == nil {
		dbc.Ctx = context.Background()
	}
	return dbc.DB(db).Transaction(func(tx *gorm.DB) error {
		return fn(dbc.WithTx(tx))
	})
}

func loadTenant(dbc dbctx.Context, tenants repos.TenantRepo, tenantID uuid.UUID) (*types.Tenant, error) {
	t, err := tenants.GetByID(dbc, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if t == nil {
		return nil, apierr.NotFound("tenant_not_found", "tenant %s not found", tenantID)
	}
	return t, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validEmail(s string) bool {
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t")
}

func normalizeCurrency(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func validCurrency(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func timePtr(t time.Time) *time.Time { return &t }

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

const defaultCurrency = "USD"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type TenantInput struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Currency   string `json:"currency"`
	Timezone   string `json:"timezone"`
	TaxRateBps int64  `json:"tax_rate_bps"`
}

// TenantSettings is a partial update; nil fields are left untouched.
type TenantSettings struct {
	Name       *string `json:"name,omitempty"`
	Currency   *string `json:"currency,omitempty"`
	Timezone   *string `json:"timezone,omitempty"`
	TaxRateBps *int64  `json:"tax_rate_bps,omitempty"`
}

type TenantService interface {
	// Create provisions a tenant. It is an operator action and does not read
	// the tenant from ctx.
	Create(ctx context.Context, in TenantInput) (*types.Tenant, error)
	Get(ctx context.Context) (*types.Tenant, error)
	UpdateSettings(ctx context.Context, in TenantSettings) (*types.Tenant, error)
	List(ctx context.Context) ([]*types.Tenant, error)
}

type tenantService struct {
	db      *gorm.DB
	log     *logger.Logger
	tenants repos.TenantRepo
}

func NewTenantService(db *gorm.DB, log *logger.Logger, tenants repos.TenantRepo) TenantService {
	return &tenantService{
		db:      db,
		log:     log.With("service", "TenantService"),
		tenants: tenants,
	}
}

func (s *tenantService) Create(ctx context.Context, in TenantInput) (*types.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.Invalid("name_required", "tenant name is required")
	}
	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = slugify(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, apierr.Invalid("invalid_slug", "slug %q must be lower-case letters, digits and dashes", slug)
	}
	currency := normalizeCurrency(in.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	if !validCurrency(currency) {
		return nil, apierr.Invalid("invalid_currency", "currency %q is not an ISO 4217 code", in.Currency)
	}
	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, apierr.Invalid("invalid_timezone", "unknown time zone %q", tz)
	}
	if in.TaxRateBps < 0 || in.TaxRateBps > 10000 {
		return nil, apierr.Invalid("invalid_tax_rate", "tax rate must be between 0 and 10000 bps")
	}

	t := &types.Tenant{
		Name:       name,
		Slug:       slug,
		Currency:   currency,
		Timezone:   tz,
		TaxRateBps: in.TaxRateBps,
	}
	if _, err := s.tenants.Create(dbctx.Context{Ctx: ctx}, t); err != nil {
		if db.IsDuplicate(err) {
			return nil, apierr.Conflict("slug_taken", "tenant slug %q is already used", slug)
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	s.log.Info("Tenant created", "tenant_id", t.ID, "slug", t.Slug)
	return t, nil
}

func (s *tenantService) Get(ctx context.Context) (*types.Tenant, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return loadTenant(dbctx.Context{Ctx: ctx}, s.tenants, tenantID)
}

func (s *tenantService) UpdateSettings(ctx context.Context, in TenantSettings) (*types.Tenant, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.Invalid("name_required", "tenant name is required")
		}
		updates["name"] = name
	}
	if in.Currency != nil {
		c := normalizeCurrency(*in.Currency)
		if !validCurrency(c) {
			return nil, apierr.Invalid("invalid_currency", "currency %q is not an ISO 4217 code", *in.Currency)
		}
		updates["currency"] = c
	}
	if in.Timezone != nil {
		tz := strings.TrimSpace(*in.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, apierr.Invalid("invalid_timezone", "unknown time zone %q", tz)
		}
		updates["timezone"] = tz
	}
	if in.TaxRateBps != nil {
		if *in.TaxRateBps < 0 || *in.TaxRateBps > 10000 {
			return nil, apierr.Invalid("invalid_tax_rate", "tax rate must be between 0 and 10000 bps")
		}
		updates["tax_rate_bps"] = *in.TaxRateBps
	}

	var out *types.Tenant
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		if _, err := loadTenant(dbc, s.tenants, tenantID); err != nil {
			return err
		}
		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := s.tenants.UpdateFields(dbc, tenantID, updates); err != nil {
				return fmt.Errorf("update tenant: %w", err)
			}
		}
		t, err := loadTenant(dbc, s.tenants, tenantID)
		out = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *tenantService) List(ctx context.Context) ([]*types.Tenant, error) {
	return s.tenants.List(dbctx.Context{Ctx: ctx})
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

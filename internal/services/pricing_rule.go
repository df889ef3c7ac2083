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
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type PricingRuleInput struct {
	SpaceID    *uuid.UUID         `json:"space_id,omitempty"`
	Name       string             `json:"name"`
	Kind       string             `json:"kind"`
	Priority   int                `json:"priority"`
	Exclusive  bool               `json:"exclusive"`
	Active     *bool              `json:"active,omitempty"`
	ValidFrom  *time.Time         `json:"valid_from,omitempty"`
	ValidTo    *time.Time         `json:"valid_to,omitempty"`
	Conditions pricing.Conditions `json:"conditions"`
	Adjustment pricing.Adjustment `json:"adjustment"`
}

type PricingRuleService interface {
	Create(ctx context.Context, in PricingRuleInput) (*types.PricingRule, error)
	// List returns the rules that apply to spaceID (its own plus tenant-wide),
	// or every rule of the tenant when spaceID is nil.
	List(ctx context.Context, spaceID *uuid.UUID) ([]*types.PricingRule, error)
	Update(ctx context.Context, id uuid.UUID, in PricingRuleInput) (*types.PricingRule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ImportYAML replaces the rules scoped exactly to spaceID with the document's.
	ImportYAML(ctx context.Context, spaceID *uuid.UUID, data []byte) ([]*types.PricingRule, error)
}

type pricingRuleService struct {
	db     *gorm.DB
	log    *logger.Logger
	rules  repos.PricingRuleRepo
	spaces repos.SpaceRepo
	clock  clock
}

func NewPricingRuleService(db *gorm.DB, log *logger.Logger, rules repos.PricingRuleRepo, spaceRepo repos.SpaceRepo) PricingRuleService {
	return &pricingRuleService{
		db:     db,
		log:    log.With("service", "PricingRuleService"),
		rules:  rules,
		spaces: spaceRepo,
	}
}

func (in PricingRuleInput) rule() pricing.Rule {
	active := in.Active == nil || *in.Active
	return pricing.Rule{
		Name:       strings.TrimSpace(in.Name),
		Kind:       strings.TrimSpace(in.Kind),
		Priority:   in.Priority,
		Exclusive:  in.Exclusive,
		Active:     active,
		ValidFrom:  in.ValidFrom,
		ValidTo:    in.ValidTo,
		Conditions: in.Conditions,
		Adjustment: in.Adjustment,
	}
}

func (s *pricingRuleService) checkSpace(dbc dbctx.Context, tenantID uuid.UUID, spaceID *uuid.UUID) error {
	if spaceID == nil {
		return nil
	}
	sp, err := s.spaces.GetByID(dbc, tenantID, *spaceID)
	if err != nil {
		return fmt.Errorf("load space: %w", err)
	}
	if sp == nil {
		return apierr.NotFound("space_not_found", "space %s not found", *spaceID)
	}
	return nil
}

func (s *pricingRuleService) Create(ctx context.Context, in PricingRuleInput) (*types.PricingRule, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	r := in.rule()
	if err := r.Check(); err != nil {
		return nil, apierr.Invalid("invalid_rule", "%v", err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.checkSpace(dbc, tenantID, in.SpaceID); err != nil {
		return nil, err
	}
	m, err := pricing.ToModel(r, tenantID, in.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("encode rule: %w", err)
	}
	if _, err := s.rules.Create(dbc, m); err != nil {
		return nil, fmt.Errorf("create pricing rule: %w", err)
	}
	return m, nil
}

func (s *pricingRuleService) List(ctx context.Context, spaceID *uuid.UUID) ([]*types.PricingRule, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.rules.ListForSpace(dbctx.Context{Ctx: ctx}, tenantID, spaceID)
}

func (s *pricingRuleService) Update(ctx context.Context, id uuid.UUID, in PricingRuleInput) (*types.PricingRule, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	r := in.rule()
	if err := r.Check(); err != nil {
		return nil, apierr.Invalid("invalid_rule", "%v", err)
	}
	var out *types.PricingRule
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		existing, err := s.rules.GetByID(dbc, tenantID, id)
		if err != nil {
			return fmt.Errorf("load pricing rule: %w", err)
		}
		if existing == nil {
			return apierr.NotFound("pricing_rule_not_found", "pricing rule %s not found", id)
		}
		m, err := pricing.ToModel(r, tenantID, existing.SpaceID)
		if err != nil {
			return fmt.Errorf("encode rule: %w", err)
		}
		now := s.clock.now()
		if err := s.rules.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"name":       m.Name,
			"kind":       m.Kind,
			"priority":   m.Priority,
			"exclusive":  m.Exclusive,
			"active":     m.Active,
			"valid_from": m.ValidFrom,
			"valid_to":   m.ValidTo,
			"conditions": m.Conditions,
			"adjustment": m.Adjustment,
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("update pricing rule: %w", err)
		}
		m.ID = id
		m.CreatedAt = existing.CreatedAt
		m.UpdatedAt = now
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *pricingRuleService) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	ok, err := s.rules.Delete(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete pricing rule: %w", err)
	}
	if !ok {
		return apierr.NotFound("pricing_rule_not_found", "pricing rule %s not found", id)
	}
	return nil
}

func (s *pricingRuleService) ImportYAML(ctx context.Context, spaceID *uuid.UUID, data []byte) ([]*types.PricingRule, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	parsed, err := pricing.ParseYAML(data)
	if err != nil {
		return nil, apierr.Invalid("invalid_rules_document", "%v", err)
	}
	models := make([]*types.PricingRule, 0, len(parsed))
	for _, r := range parsed {
		m, err := pricing.ToModel(r, tenantID, spaceID)
		if err != nil {
			return nil, fmt.Errorf("encode rule: %w", err)
		}
		models = append(models, m)
	}
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		if err := s.checkSpace(dbc, tenantID, spaceID); err != nil {
			return err
		}
		if err := s.rules.ReplaceForSpace(dbc, tenantID, spaceID, models); err != nil {
			return fmt.Errorf("replace pricing rules: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithContext(ctx).Info("Pricing rules imported", "count", len(models))
	return models, nil
}

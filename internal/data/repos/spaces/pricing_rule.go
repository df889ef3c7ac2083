package spaces

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type PricingRuleRepo interface {
	Create(dbc dbctx.Context, rule *types.PricingRule) (*types.PricingRule, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.PricingRule, error)
	// ListForSpace returns the space's own rules plus tenant-wide rules.
	// A nil spaceID returns every rule of the tenant.
	ListForSpace(dbc dbctx.Context, tenantID uuid.UUID, spaceID *uuid.UUID) ([]*types.PricingRule, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) (bool, error)
	// ReplaceForSpace deletes the rules scoped exactly to spaceID (nil = tenant-wide)
	// and inserts rules. Callers run it inside a transaction.
	ReplaceForSpace(dbc dbctx.Context, tenantID uuid.UUID, spaceID *uuid.UUID, rules []*types.PricingRule) error
}

type pricingRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPricingRuleRepo(db *gorm.DB, baseLog *logger.Logger) PricingRuleRepo {
	return &pricingRuleRepo{db: db, log: baseLog.With("repo", "PricingRuleRepo")}
}

func (r *pricingRuleRepo) Create(dbc dbctx.Context, rule *types.PricingRule) (*types.PricingRule, error) {
	if err := dbc.DB(r.db).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *pricingRuleRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.PricingRule, error) {
	var out types.PricingRule
	if err := dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *pricingRuleRepo) ListForSpace(dbc dbctx.Context, tenantID uuid.UUID, spaceID *uuid.UUID) ([]*types.PricingRule, error) {
	q := dbc.DB(r.db).Where("tenant_id = ?", tenantID)
	if spaceID != nil {
		q = q.Where("(space_id = ? OR space_id IS NULL)", *spaceID)
	}
	var out []*types.PricingRule
	if err := q.Order("priority DESC").Order("name ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pricingRuleRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.PricingRule{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *pricingRuleRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&types.PricingRule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pricingRuleRepo) ReplaceForSpace(dbc dbctx.Context, tenantID uuid.UUID, spaceID *uuid.UUID, rules []*types.PricingRule) error {
	t := dbc.DB(r.db)
	del := t.Where("tenant_id = ?", tenantID)
	if spaceID != nil {
		del = del.Where("space_id = ?", *spaceID)
	} else {
		del = del.Where("space_id IS NULL")
	}
	if err := del.Delete(&types.PricingRule{}).Error; err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}
	return t.Create(&rules).Error
}

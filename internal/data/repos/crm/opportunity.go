package crm

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type OpportunityFilter struct {
	Stage  string
	LeadID *uuid.UUID
	Limit  int
	Offset int
}

type OpportunityRepo interface {
	Create(dbc dbctx.Context, opp *types.Opportunity) (*types.Opportunity, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Opportunity, error)
	GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Opportunity, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f OpportunityFilter) ([]*types.Opportunity, int64, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
}

type opportunityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOpportunityRepo(db *gorm.DB, baseLog *logger.Logger) OpportunityRepo {
	return &opportunityRepo{db: db, log: baseLog.With("repo", "OpportunityRepo")}
}

func (r *opportunityRepo) Create(dbc dbctx.Context, opp *types.Opportunity) (*types.Opportunity, error) {
	if err := dbc.DB(r.db).Create(opp).Error; err != nil {
		return nil, err
	}
	return opp, nil
}

func (r *opportunityRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Opportunity, error) {
	return r.get(dbc.DB(r.db), tenantID, id)
}

func (r *opportunityRepo) GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Opportunity, error) {
	return r.get(dbc.ForUpdate(r.db), tenantID, id)
}

func (r *opportunityRepo) get(q *gorm.DB, tenantID, id uuid.UUID) (*types.Opportunity, error) {
	var out types.Opportunity
	if err := q.Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *opportunityRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f OpportunityFilter) ([]*types.Opportunity, int64, error) {
	q := dbc.DB(r.db).Model(&types.Opportunity{}).Where("tenant_id = ?", tenantID)
	if f.Stage != "" {
		q = q.Where("stage = ?", f.Stage)
	}
	if f.LeadID != nil {
		q = q.Where("lead_id = ?", *f.LeadID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Opportunity
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *opportunityRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Opportunity{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

package crm

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type LeadFilter struct {
	Status string
	Source string
	Search string
	Limit  int
	Offset int
}

type LeadRepo interface {
	Create(dbc dbctx.Context, lead *types.Lead) (*types.Lead, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Lead, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f LeadFilter) ([]*types.Lead, int64, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, tenantID, id uuid.UUID) (bool, error)
}

type leadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLeadRepo(db *gorm.DB, baseLog *logger.Logger) LeadRepo {
	return &leadRepo{db: db, log: baseLog.With("repo", "LeadRepo")}
}

func (r *leadRepo) Create(dbc dbctx.Context, lead *types.Lead) (*types.Lead, error) {
	if err := dbc.DB(r.db).Create(lead).Error; err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Lead, error) {
	var out types.Lead
	err := dbc.DB(r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *leadRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f LeadFilter) ([]*types.Lead, int64, error) {
	q := dbc.DB(r.db).Model(&types.Lead{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?)", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Lead
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *leadRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Lead{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *leadRepo) Delete(dbc dbctx.Context, tenantID, id uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&types.Lead{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

package tenant

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type TenantRepo interface {
	Create(dbc dbctx.Context, t *types.Tenant) (*types.Tenant, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tenant, error)
	GetBySlug(dbc dbctx.Context, slug string) (*types.Tenant, error)
	List(dbc dbctx.Context) ([]*types.Tenant, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type tenantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTenantRepo(db *gorm.DB, baseLog *logger.Logger) TenantRepo {
	return &tenantRepo{db: db, log: baseLog.With("repo", "TenantRepo")}
}

func (r *tenantRepo) Create(dbc dbctx.Context, t *types.Tenant) (*types.Tenant, error) {
	if err := dbc.DB(r.db).Create(t).Error; err != nil {
		return nil, db.TranslateError(err)
	}
	return t, nil
}

func (r *tenantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Tenant, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Tenant
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *tenantRepo) GetBySlug(dbc dbctx.Context, slug string) (*types.Tenant, error) {
	if slug == "" {
		return nil, nil
	}
	var out types.Tenant
	if err := dbc.DB(r.db).Where("slug = ?", slug).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *tenantRepo) List(dbc dbctx.Context) ([]*types.Tenant, error) {
	var out []*types.Tenant
	if err := dbc.DB(r.db).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *tenantRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Tenant{}).Where("id = ?", id).Updates(updates).Error
}

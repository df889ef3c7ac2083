package spaces

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type SpaceRepo interface {
	Create(dbc dbctx.Context, s *types.Space) (*types.Space, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Space, error)
	// GetForUpdate row-locks the space; booking writes serialise on it.
	GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Space, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, activeOnly bool) ([]*types.Space, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
}

type spaceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSpaceRepo(db *gorm.DB, baseLog *logger.Logger) SpaceRepo {
	return &spaceRepo{db: db, log: baseLog.With("repo", "SpaceRepo")}
}

func (r *spaceRepo) Create(dbc dbctx.Context, s *types.Space) (*types.Space, error) {
	if err := dbc.DB(r.db).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *spaceRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Space, error) {
	return r.get(dbc.DB(r.db), tenantID, id)
}

func (r *spaceRepo) GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Space, error) {
	return r.get(dbc.ForUpdate(r.db), tenantID, id)
}

func (r *spaceRepo) get(q *gorm.DB, tenantID, id uuid.UUID) (*types.Space, error) {
	var out types.Space
	if err := q.Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *spaceRepo) List(dbc dbctx.Context, tenantID uuid.UUID, activeOnly bool) ([]*types.Space, error) {
	q := dbc.DB(r.db).Where("tenant_id = ?", tenantID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	var out []*types.Space
	if err := q.Order("name ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *spaceRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Space{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

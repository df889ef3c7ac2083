package billing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type BankStatementRepo interface {
	Create(dbc dbctx.Context, s *types.BankStatement) (*types.BankStatement, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.BankStatement, error)
	GetByFingerprint(dbc dbctx.Context, tenantID uuid.UUID, fingerprint string) (*types.BankStatement, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, limit, offset int) ([]*types.BankStatement, error)
	// ListByStatus scans all tenants; used by the nightly reconciliation job.
	ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.BankStatement, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
}

type bankStatementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBankStatementRepo(db *gorm.DB, baseLog *logger.Logger) BankStatementRepo {
	return &bankStatementRepo{db: db, log: baseLog.With("repo", "BankStatementRepo")}
}

func (r *bankStatementRepo) Create(dbc dbctx.Context, s *types.BankStatement) (*types.BankStatement, error) {
	if err := dbc.DB(r.db).Create(s).Error; err != nil {
		return nil, db.TranslateError(err)
	}
	return s, nil
}

func (r *bankStatementRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.BankStatement, error) {
	return r.first(dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id))
}

func (r *bankStatementRepo) GetByFingerprint(dbc dbctx.Context, tenantID uuid.UUID, fingerprint string) (*types.BankStatement, error) {
	return r.first(dbc.DB(r.db).Where("tenant_id = ? AND fingerprint = ?", tenantID, fingerprint))
}

func (r *bankStatementRepo) first(q *gorm.DB) (*types.BankStatement, error) {
	var out types.BankStatement
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *bankStatementRepo) List(dbc dbctx.Context, tenantID uuid.UUID, limit, offset int) ([]*types.BankStatement, error) {
	var out []*types.BankStatement
	err := dbc.DB(r.db).
		Where("tenant_id = ?", tenantID).
		Order("imported_at DESC").
		Limit(db.PageLimit(limit)).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bankStatementRepo) ListByStatus(dbc dbctx.Context, status string, limit int) ([]*types.BankStatement, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*types.BankStatement
	err := dbc.DB(r.db).
		Where("status = ?", status).
		Order("imported_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bankStatementRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.BankStatement{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

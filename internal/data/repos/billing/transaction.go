package billing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type BankTransactionRepo interface {
	CreateBatch(dbc dbctx.Context, txs []*types.BankTransaction) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.BankTransaction, error)
	// ListUnmatched returns unmatched credits of the tenant; statementID narrows to one statement.
	ListUnmatched(dbc dbctx.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]*types.BankTransaction, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
}

type bankTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBankTransactionRepo(db *gorm.DB, baseLog *logger.Logger) BankTransactionRepo {
	return &bankTransactionRepo{db: db, log: baseLog.With("repo", "BankTransactionRepo")}
}

func (r *bankTransactionRepo) CreateBatch(dbc dbctx.Context, txs []*types.BankTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(&txs, 200).Error
}

func (r *bankTransactionRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.BankTransaction, error) {
	var out types.BankTransaction
	if err := dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *bankTransactionRepo) ListUnmatched(dbc dbctx.Context, tenantID uuid.UUID, statementID *uuid.UUID) ([]*types.BankTransaction, error) {
	q := dbc.DB(r.db).Where("tenant_id = ? AND matched = ? AND amount > 0", tenantID, false)
	if statementID != nil {
		q = q.Where("statement_id = ?", *statementID)
	}
	var out []*types.BankTransaction
	if err := q.Order("booked_at ASC").Order("line ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bankTransactionRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.BankTransaction{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

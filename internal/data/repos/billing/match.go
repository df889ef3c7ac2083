package billing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type MatchFilter struct {
	Status string
	Limit  int
	Offset int
}

type ReconciliationMatchRepo interface {
	CreateBatch(dbc dbctx.Context, matches []*types.ReconciliationMatch) error
	GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.ReconciliationMatch, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f MatchFilter) ([]*types.ReconciliationMatch, int64, error)
	// PendingPairs returns ids of payments and transactions already held by a
	// suggested match so a rerun does not suggest them twice.
	PendingPairs(dbc dbctx.Context, tenantID uuid.UUID) (payments, transactions []uuid.UUID, err error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
}

type reconciliationMatchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReconciliationMatchRepo(db *gorm.DB, baseLog *logger.Logger) ReconciliationMatchRepo {
	return &reconciliationMatchRepo{db: db, log: baseLog.With("repo", "ReconciliationMatchRepo")}
}

func (r *reconciliationMatchRepo) CreateBatch(dbc dbctx.Context, matches []*types.ReconciliationMatch) error {
	if len(matches) == 0 {
		return nil
	}
	return db.TranslateError(dbc.DB(r.db).Create(&matches).Error)
}

func (r *reconciliationMatchRepo) GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.ReconciliationMatch, error) {
	var out types.ReconciliationMatch
	err := dbc.ForUpdate(r.db).
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

func (r *reconciliationMatchRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f MatchFilter) ([]*types.ReconciliationMatch, int64, error) {
	q := dbc.DB(r.db).Model(&types.ReconciliationMatch{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.ReconciliationMatch
	if err := q.Order("score DESC").Order("created_at DESC").Order("id ASC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *reconciliationMatchRepo) PendingPairs(dbc dbctx.Context, tenantID uuid.UUID) ([]uuid.UUID, []uuid.UUID, error) {
	var rows []types.ReconciliationMatch
	err := dbc.DB(r.db).
		Select("payment_id", "bank_transaction_id").
		Where("tenant_id = ? AND status = ?", tenantID, types.MatchStatusSuggested).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	payments := make([]uuid.UUID, 0, len(rows))
	transactions := make([]uuid.UUID, 0, len(rows))
	for _, m := range rows {
		payments = append(payments, m.PaymentID)
		transactions = append(transactions, m.BankTransactionID)
	}
	return payments, transactions, nil
}

func (r *reconciliationMatchRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.ReconciliationMatch{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

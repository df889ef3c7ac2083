package billing

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type PaymentFilter struct {
	InvoiceID  *uuid.UUID
	Reconciled *bool
	Limit      int
	Offset     int
}

type PaymentRepo interface {
	Create(dbc dbctx.Context, p *types.Payment) (*types.Payment, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Payment, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f PaymentFilter) ([]*types.Payment, int64, error)
	ListUnreconciled(dbc dbctx.Context, tenantID uuid.UUID) ([]*types.Payment, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(dbc dbctx.Context, p *types.Payment) (*types.Payment, error) {
	if err := dbc.DB(r.db).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Payment, error) {
	var out types.Payment
	if err := dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *paymentRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f PaymentFilter) ([]*types.Payment, int64, error) {
	q := dbc.DB(r.db).Model(&types.Payment{}).Where("tenant_id = ?", tenantID)
	if f.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *f.InvoiceID)
	}
	if f.Reconciled != nil {
		q = q.Where("reconciled = ?", *f.Reconciled)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Payment
	if err := q.Order("received_at DESC").Order("id DESC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *paymentRepo) ListUnreconciled(dbc dbctx.Context, tenantID uuid.UUID) ([]*types.Payment, error) {
	var out []*types.Payment
	err := dbc.DB(r.db).
		Where("tenant_id = ? AND reconciled = ?", tenantID, false).
		Order("received_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *paymentRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Payment{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

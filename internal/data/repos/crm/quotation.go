package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type QuotationFilter struct {
	Status        string
	OpportunityID *uuid.UUID
	Limit         int
	Offset        int
}

type QuotationRepo interface {
	Create(dbc dbctx.Context, q *types.Quotation) (*types.Quotation, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Quotation, error)
	GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Quotation, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f QuotationFilter) ([]*types.Quotation, int64, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
	SetLineBooking(dbc dbctx.Context, lineID, bookingID uuid.UUID) error
	// ExpireDue flips sent quotations past valid_until to expired across all tenants.
	ExpireDue(dbc dbctx.Context, now time.Time) (int64, error)
}

type quotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuotationRepo(db *gorm.DB, baseLog *logger.Logger) QuotationRepo {
	return &quotationRepo{db: db, log: baseLog.With("repo", "QuotationRepo")}
}

func (r *quotationRepo) Create(dbc dbctx.Context, q *types.Quotation) (*types.Quotation, error) {
	if err := dbc.DB(r.db).Create(q).Error; err != nil {
		return nil, db.TranslateError(err)
	}
	return q, nil
}

func (r *quotationRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Quotation, error) {
	return r.get(dbc.DB(r.db), tenantID, id)
}

func (r *quotationRepo) GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Quotation, error) {
	return r.get(dbc.ForUpdate(r.db), tenantID, id)
}

func (r *quotationRepo) get(q *gorm.DB, tenantID, id uuid.UUID) (*types.Quotation, error) {
	var out types.Quotation
	err := q.Where("tenant_id = ? AND id = ?", tenantID, id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	var lines []types.QuotationLine
	if err := q.Session(&gorm.Session{NewDB: true}).
		Where("quotation_id = ?", out.ID).
		Order("position ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	out.Lines = lines
	return &out, nil
}

func (r *quotationRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f QuotationFilter) ([]*types.Quotation, int64, error) {
	q := dbc.DB(r.db).Model(&types.Quotation{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OpportunityID != nil {
		q = q.Where("opportunity_id = ?", *f.OpportunityID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Quotation
	if err := q.Order("created_at DESC").Order("id DESC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *quotationRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Quotation{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *quotationRepo) SetLineBooking(dbc dbctx.Context, lineID, bookingID uuid.UUID) error {
	return dbc.DB(r.db).Model(&types.QuotationLine{}).
		Where("id = ?", lineID).
		Update("booking_id", bookingID).Error
}

func (r *quotationRepo) ExpireDue(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(r.db).Model(&types.Quotation{}).
		Where("status = ? AND valid_until <= ?", types.QuotationStatusSent, now).
		Updates(map[string]interface{}{"status": types.QuotationStatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type InvoiceFilter struct {
	Status    string
	BookingID *uuid.UUID
	Limit     int
	Offset    int
}

type InvoiceRepo interface {
	Create(dbc dbctx.Context, inv *types.Invoice) (*types.Invoice, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Invoice, error)
	GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Invoice, error)
	// GetActiveByBooking returns the non-void invoice for a booking, if any.
	GetActiveByBooking(dbc dbctx.Context, tenantID, bookingID uuid.UUID) (*types.Invoice, error)
	GetByIDs(dbc dbctx.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*types.Invoice, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f InvoiceFilter) ([]*types.Invoice, int64, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
	// MarkOverdue flips open/partially paid invoices past due_at to overdue across tenants.
	MarkOverdue(dbc dbctx.Context, now time.Time) (int64, error)
}

type invoiceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInvoiceRepo(db *gorm.DB, baseLog *logger.Logger) InvoiceRepo {
	return &invoiceRepo{db: db, log: baseLog.With("repo", "InvoiceRepo")}
}

func (r *invoiceRepo) Create(dbc dbctx.Context, inv *types.Invoice) (*types.Invoice, error) {
	if err := dbc.DB(r.db).Create(inv).Error; err != nil {
		return nil, db.TranslateError(err)
	}
	return inv, nil
}

func (r *invoiceRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Invoice, error) {
	return r.first(dbc.DB(r.db).Where("tenant_id = ? AND id = ?", tenantID, id))
}

func (r *invoiceRepo) GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Invoice, error) {
	return r.first(dbc.ForUpdate(r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id))
}

func (r *invoiceRepo) GetActiveByBooking(dbc dbctx.Context, tenantID, bookingID uuid.UUID) (*types.Invoice, error) {
	return r.first(dbc.DB(r.db).
		Where("tenant_id = ? AND booking_id = ? AND status <> ?", tenantID, bookingID, types.InvoiceStatusVoid).
		Order("created_at DESC"))
}

func (r *invoiceRepo) first(q *gorm.DB) (*types.Invoice, error) {
	var out types.Invoice
	if err := q.Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *invoiceRepo) GetByIDs(dbc dbctx.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*types.Invoice, error) {
	var out []*types.Invoice
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *invoiceRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f InvoiceFilter) ([]*types.Invoice, int64, error) {
	q := dbc.DB(r.db).Model(&types.Invoice{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.BookingID != nil {
		q = q.Where("booking_id = ?", *f.BookingID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Invoice
	if err := q.Order("issued_at DESC").Order("id DESC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *invoiceRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Invoice{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *invoiceRepo) MarkOverdue(dbc dbctx.Context, now time.Time) (int64, error) {
	res := dbc.DB(r.db).Model(&types.Invoice{}).
		Where("status IN ? AND due_at < ?", []string{types.InvoiceStatusOpen, types.InvoiceStatusPartiallyPaid}, now).
		Updates(map[string]interface{}{"status": types.InvoiceStatusOverdue, "updated_at": now})
	return res.RowsAffected, res.Error
}

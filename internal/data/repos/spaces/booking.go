package spaces

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type BookingFilter struct {
	SpaceID *uuid.UUID
	Status  string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type BookingRepo interface {
	Create(dbc dbctx.Context, b *types.Booking) (*types.Booking, error)
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Booking, error)
	GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Booking, error)
	List(dbc dbctx.Context, tenantID uuid.UUID, f BookingFilter) ([]*types.Booking, int64, error)
	// ListActiveInRange returns pending/confirmed bookings of a space overlapping [from, to).
	ListActiveInRange(dbc dbctx.Context, tenantID, spaceID uuid.UUID, from, to time.Time) ([]*types.Booking, error)
	UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error
	// ListExpiredHolds returns pending bookings whose hold ran out, across tenants.
	ListExpiredHolds(dbc dbctx.Context, now time.Time, limit int) ([]*types.Booking, error)
	// ExpireHold marks a booking expired only while it is still a lapsed
	// pending hold. It reports whether the row changed.
	ExpireHold(dbc dbctx.Context, tenantID, id uuid.UUID, now time.Time) (bool, error)
}

type bookingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookingRepo(db *gorm.DB, baseLog *logger.Logger) BookingRepo {
	return &bookingRepo{db: db, log: baseLog.With("repo", "BookingRepo")}
}

func (r *bookingRepo) Create(dbc dbctx.Context, b *types.Booking) (*types.Booking, error) {
	if err := dbc.DB(r.db).Create(b).Error; err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Booking, error) {
	return r.get(dbc.DB(r.db), tenantID, id)
}

func (r *bookingRepo) GetForUpdate(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Booking, error) {
	return r.get(dbc.ForUpdate(r.db), tenantID, id)
}

func (r *bookingRepo) get(q *gorm.DB, tenantID, id uuid.UUID) (*types.Booking, error) {
	var out types.Booking
	if err := q.Where("tenant_id = ? AND id = ?", tenantID, id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *bookingRepo) List(dbc dbctx.Context, tenantID uuid.UUID, f BookingFilter) ([]*types.Booking, int64, error) {
	q := dbc.DB(r.db).Model(&types.Booking{}).Where("tenant_id = ?", tenantID)
	if f.SpaceID != nil {
		q = q.Where("space_id = ?", *f.SpaceID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("end_at > ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("start_at < ?", *f.To)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Booking
	if err := q.Order("start_at ASC").Order("id ASC").
		Limit(db.PageLimit(f.Limit)).Offset(f.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *bookingRepo) ListActiveInRange(dbc dbctx.Context, tenantID, spaceID uuid.UUID, from, to time.Time) ([]*types.Booking, error) {
	var out []*types.Booking
	err := dbc.DB(r.db).
		Where("tenant_id = ? AND space_id = ?", tenantID, spaceID).
		Where("status IN ?", []string{types.BookingStatusPending, types.BookingStatusConfirmed}).
		Where("start_at < ? AND end_at > ?", to, from).
		Order("start_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookingRepo) UpdateFields(dbc dbctx.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&types.Booking{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(updates).Error
}

func (r *bookingRepo) ListExpiredHolds(dbc dbctx.Context, now time.Time, limit int) ([]*types.Booking, error) {
	if limit <= 0 {
		limit = 500
	}
	var out []*types.Booking
	err := dbc.DB(r.db).
		Where("status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?", types.BookingStatusPending, now).
		Order("hold_expires_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookingRepo) ExpireHold(dbc dbctx.Context, tenantID, id uuid.UUID, now time.Time) (bool, error) {
	res := dbc.DB(r.db).Model(&types.Booking{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Where("status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at <= ?", types.BookingStatusPending, now).
		Updates(map[string]interface{}{
			"status":     types.BookingStatusExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

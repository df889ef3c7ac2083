package tenant

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type SequenceRepo interface {
	// Next atomically increments and returns the counter for (tenant, prefix, year).
	Next(dbc dbctx.Context, tenantID uuid.UUID, prefix string, year int) (int64, error)
}

type sequenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSequenceRepo(db *gorm.DB, baseLog *logger.Logger) SequenceRepo {
	return &sequenceRepo{db: db, log: baseLog.With("repo", "SequenceRepo")}
}

func (r *sequenceRepo) Next(dbc dbctx.Context, tenantID uuid.UUID, prefix string, year int) (int64, error) {
	if tenantID == uuid.Nil || prefix == "" {
		return 0, fmt.Errorf("sequence: tenant and prefix required")
	}
	t := dbc.DB(r.db)
	row := &types.Sequence{TenantID: tenantID, Prefix: prefix, Year: year, Counter: 1}
	err := t.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "prefix"}, {Name: "year"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"counter": gorm.Expr("document_sequence.counter + 1"),
		}),
	}).Create(row).Error
	if err != nil {
		return 0, err
	}
	var cur types.Sequence
	if err := t.Where("tenant_id = ? AND prefix = ? AND year = ?", tenantID, prefix, year).
		Take(&cur).Error; err != nil {
		return 0, err
	}
	return cur.Counter, nil
}

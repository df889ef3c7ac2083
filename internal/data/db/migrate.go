package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// EnsureIndexes adds the partial indexes the ORM tags cannot express. The
// active-match index applies to every driver; the rest are Postgres only.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []string{
		// a pair can be suggested or confirmed once; rejected rows may pile up
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_match_active_pair ON reconciliation_match(payment_id, bank_transaction_id) WHERE status <> 'rejected';`,
	}
	if db.Dialector.Name() == DriverPostgres {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_booking_active_window ON booking(space_id, start_at, end_at) WHERE status IN ('pending','confirmed');`,
			`CREATE INDEX IF NOT EXISTS idx_payment_unreconciled ON payment(tenant_id, received_at) WHERE reconciled = false;`,
			`CREATE INDEX IF NOT EXISTS idx_bank_tx_unmatched ON bank_transaction(tenant_id, booked_at) WHERE matched = false;`,
		)
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}

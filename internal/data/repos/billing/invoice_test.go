package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/db"
	"github.com/yungbote/deskbase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
)

func TestInvoiceRepoMarkOverdueAndDuplicates(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	ten := testutil.SeedTenant(t, ctx, tx)
	repo := NewInvoiceRepo(gdb, testutil.Logger(t))

	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	mk := func(number, status string, due time.Time) *types.Invoice {
		inv := &types.Invoice{
			ID:           uuid.New(),
			TenantID:     ten.ID,
			Number:       number,
			CustomerName: "Ada",
			Currency:     "EUR",
			Amount:       10000,
			Status:       status,
			IssuedAt:     due.AddDate(0, 0, -14),
			DueAt:        due,
		}
		if _, err := repo.Create(dbc, inv); err != nil {
			t.Fatalf("create invoice %s: %v", number, err)
		}
		return inv
	}
	late := mk("INV-2026-0001", types.InvoiceStatusOpen, now.AddDate(0, 0, -1))
	mk("INV-2026-0002", types.InvoiceStatusPaid, now.AddDate(0, 0, -1))
	mk("INV-2026-0003", types.InvoiceStatusOpen, now.AddDate(0, 0, 3))

	n, err := repo.MarkOverdue(dbc, now)
	if err != nil {
		t.Fatalf("MarkOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("MarkOverdue: want=1 got=%d", n)
	}
	got, err := repo.GetByID(dbc, ten.ID, late.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.InvoiceStatusOverdue {
		t.Fatalf("status: want=%s got=%s", types.InvoiceStatusOverdue, got.Status)
	}

	dup := &types.Invoice{
		TenantID: ten.ID, Number: "INV-2026-0001", CustomerName: "B", Currency: "EUR",
		Status: types.InvoiceStatusOpen, IssuedAt: now, DueAt: now,
	}
	// savepoint keeps the outer transaction usable on Postgres
	err = tx.Transaction(func(inner *gorm.DB) error {
		_, cerr := repo.Create(dbctx.Context{Ctx: ctx, Tx: inner}, dup)
		return cerr
	})
	if !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("duplicate number: want ErrDuplicate got %v", err)
	}
}

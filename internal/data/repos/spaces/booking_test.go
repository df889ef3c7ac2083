package spaces

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
)

func TestBookingRepoActiveInRangeAndHolds(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	ten := testutil.SeedTenant(t, ctx, tx)
	space := testutil.SeedSpace(t, ctx, tx, ten.ID)
	repo := NewBookingRepo(db, testutil.Logger(t))

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	past := day.Add(-time.Hour)
	mk := func(startH, endH int, status string, hold *time.Time) *types.Booking {
		b := &types.Booking{
			ID:            uuid.New(),
			TenantID:      ten.ID,
			SpaceID:       space.ID,
			MemberName:    "Ada",
			Attendees:     2,
			StartAt:       day.Add(time.Duration(startH) * time.Hour),
			EndAt:         day.Add(time.Duration(endH) * time.Hour),
			Status:        status,
			Currency:      "EUR",
			HoldExpiresAt: hold,
		}
		if _, err := repo.Create(dbc, b); err != nil {
			t.Fatalf("create booking: %v", err)
		}
		return b
	}
	morning := mk(9, 10, types.BookingStatusConfirmed, nil)
	held := mk(11, 12, types.BookingStatusPending, &past)
	mk(13, 14, types.BookingStatusCancelled, nil)
	mk(15, 16, types.BookingStatusConfirmed, nil)

	got, err := repo.ListActiveInRange(dbc, ten.ID, space.ID, day.Add(9*time.Hour+30*time.Minute), day.Add(14*time.Hour+30*time.Minute))
	if err != nil {
		t.Fatalf("ListActiveInRange: %v", err)
	}
	if len(got) != 2 || got[0].ID != morning.ID || got[1].ID != held.ID {
		t.Fatalf("ListActiveInRange: want [morning held] got %d rows", len(got))
	}

	// touching intervals do not overlap
	got, err = repo.ListActiveInRange(dbc, ten.ID, space.ID, day.Add(10*time.Hour), day.Add(11*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveInRange: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("adjacent window: want=0 got=%d", len(got))
	}

	expired, err := repo.ListExpiredHolds(dbc, day, 10)
	if err != nil {
		t.Fatalf("ListExpiredHolds: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != held.ID {
		t.Fatalf("ListExpiredHolds: want held got %d rows", len(expired))
	}

	// a cancel that lands between the listing and the update wins
	if err := repo.UpdateFields(dbc, ten.ID, held.ID, map[string]interface{}{"status": types.BookingStatusCancelled}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	changed, err := repo.ExpireHold(dbc, ten.ID, held.ID, day)
	if err != nil || changed {
		t.Fatalf("ExpireHold on cancelled booking: changed=%v err=%v", changed, err)
	}
	still, err := repo.GetByID(dbc, ten.ID, held.ID)
	if err != nil || still.Status != types.BookingStatusCancelled {
		t.Fatalf("cancelled booking overwritten: %+v err=%v", still, err)
	}

	late := day.Add(30 * time.Minute)
	lapsed := mk(17, 18, types.BookingStatusPending, &late)
	if changed, err := repo.ExpireHold(dbc, ten.ID, lapsed.ID, day); err != nil || changed {
		t.Fatalf("hold not yet due: changed=%v err=%v", changed, err)
	}
	if changed, err := repo.ExpireHold(dbc, ten.ID, lapsed.ID, late); err != nil || !changed {
		t.Fatalf("due hold: changed=%v err=%v", changed, err)
	}
	if changed, err := repo.ExpireHold(dbc, ten.ID, lapsed.ID, late); err != nil || changed {
		t.Fatalf("second expiry must be a no-op: changed=%v err=%v", changed, err)
	}

	other, err := repo.GetByID(dbc, uuid.New(), morning.ID)
	if err != nil || other != nil {
		t.Fatalf("cross-tenant get: want nil,nil got %v,%v", other, err)
	}
}

func TestPricingRuleRepoReplaceForSpace(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	ten := testutil.SeedTenant(t, ctx, tx)
	space := testutil.SeedSpace(t, ctx, tx, ten.ID)
	repo := NewPricingRuleRepo(db, testutil.Logger(t))

	global := &types.PricingRule{TenantID: ten.ID, Name: "cleaning", Kind: "flat_fee", Priority: 1, Active: true}
	if _, err := repo.Create(dbc, global); err != nil {
		t.Fatalf("create: %v", err)
	}
	old := &types.PricingRule{TenantID: ten.ID, SpaceID: &space.ID, Name: "old", Kind: "weekday", Priority: 5, Active: true}
	if _, err := repo.Create(dbc, old); err != nil {
		t.Fatalf("create: %v", err)
	}

	replacement := []*types.PricingRule{
		{TenantID: ten.ID, SpaceID: &space.ID, Name: "peak", Kind: "time_window", Priority: 10, Active: true},
	}
	if err := repo.ReplaceForSpace(dbc, ten.ID, &space.ID, replacement); err != nil {
		t.Fatalf("ReplaceForSpace: %v", err)
	}

	rules, err := repo.ListForSpace(dbc, ten.ID, &space.ID)
	if err != nil {
		t.Fatalf("ListForSpace: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("ListForSpace: want=2 got=%d", len(rules))
	}
	if rules[0].Name != "peak" || rules[1].Name != "cleaning" {
		t.Fatalf("order: want [peak cleaning] got [%s %s]", rules[0].Name, rules[1].Name)
	}
}

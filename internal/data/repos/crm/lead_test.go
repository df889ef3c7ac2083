package crm

import (
	"context"
	"testing"

	"github.com/yungbote/deskbase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/crm"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
)

func TestLeadRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	ten := testutil.SeedTenant(t, ctx, tx)
	other := testutil.SeedTenant(t, ctx, tx)
	repo := NewLeadRepo(db, testutil.Logger(t))

	seed := []*types.Lead{
		{TenantID: ten.ID, Name: "Grace Hopper", Email: "grace@navy.mil", Source: crm.LeadSourceReferral, Status: crm.LeadStatusNew},
		{TenantID: ten.ID, Name: "Alan Turing", Email: "alan@bletchley.uk", Company: "Bletchley", Source: crm.LeadSourceWebsite, Status: crm.LeadStatusQualified},
		{TenantID: other.ID, Name: "Grace Other", Email: "g@other.io", Source: crm.LeadSourceWebsite, Status: crm.LeadStatusNew},
	}
	for _, l := range seed {
		if _, err := repo.Create(dbc, l); err != nil {
			t.Fatalf("create lead: %v", err)
		}
	}

	got, total, err := repo.List(dbc, ten.ID, LeadFilter{Search: "grace"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].Name != "Grace Hopper" {
		t.Fatalf("search: want Grace Hopper only, got total=%d", total)
	}

	got, total, err = repo.List(dbc, ten.ID, LeadFilter{Status: crm.LeadStatusQualified})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || got[0].Name != "Alan Turing" {
		t.Fatalf("status filter: want Alan Turing, got total=%d", total)
	}

	_, total, err = repo.List(dbc, ten.ID, LeadFilter{Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Fatalf("total ignores limit: want=2 got=%d", total)
	}

	ok, err := repo.Delete(dbc, other.ID, seed[0].ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok {
		t.Fatalf("delete across tenants must not affect rows")
	}
	ok, err = repo.Delete(dbc, ten.ID, seed[0].ID)
	if err != nil || !ok {
		t.Fatalf("Delete: want true got %v (%v)", ok, err)
	}
	gone, err := repo.GetByID(dbc, ten.ID, seed[0].ID)
	if err != nil || gone != nil {
		t.Fatalf("soft-deleted lead must be hidden, got %v (%v)", gone, err)
	}
}

package services

import (
	"testing"
	"time"

	"github.com/yungbote/deskbase-backend/internal/booking/availability"
	"github.com/yungbote/deskbase-backend/internal/booking/pricing"
	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
)

func TestSpaceCreateDefaultsAndValidation(t *testing.T) {
	h := newHarness(t)
	sp, err := h.spaces.Create(h.ctx, SpaceInput{Name: "Hot desk 4", Kind: spaces.KindDesk, Capacity: 1, HourlyRate: 800})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sp.OpenTime != "00:00" || sp.CloseTime != "24:00" || sp.OpenWeekdays != spaces.AllWeekdays || !sp.Active {
		t.Fatalf("defaults: %+v", sp)
	}

	cases := []struct {
		name string
		in   SpaceInput
		code string
	}{
		{name: "no name", in: SpaceInput{Capacity: 1}, code: "name_required"},
		{name: "bad kind", in: SpaceInput{Name: "x", Kind: "ballroom", Capacity: 1}, code: "invalid_kind"},
		{name: "no capacity", in: SpaceInput{Name: "x"}, code: "invalid_capacity"},
		{name: "negative rate", in: SpaceInput{Name: "x", Capacity: 1, DailyRate: -1}, code: "invalid_rate"},
		{name: "min over max", in: SpaceInput{Name: "x", Capacity: 1, MinDurationMinutes: 120, MaxDurationMinutes: 60}, code: "invalid_duration"},
		{name: "closes before opening", in: SpaceInput{Name: "x", Capacity: 1, OpenTime: "18:00", CloseTime: "09:00"}, code: "invalid_hours"},
		{name: "bad clock", in: SpaceInput{Name: "x", Capacity: 1, OpenTime: "9am"}, code: "invalid_hours"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.spaces.Create(h.ctx, tc.in)
			wantCode(t, err, tc.code)
		})
	}
}

func TestSpaceDeactivateBlocksBookings(t *testing.T) {
	h := newHarness(t)
	rate := int64(5000)
	updated, err := h.spaces.Update(h.ctx, h.space.ID, SpacePatch{HourlyRate: &rate})
	if err != nil || updated.HourlyRate != 5000 {
		t.Fatalf("Update: %+v err=%v", updated, err)
	}
	if _, err := h.spaces.Deactivate(h.ctx, h.space.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	active, err := h.spaces.List(h.ctx, true)
	if err != nil || len(active) != 0 {
		t.Fatalf("active list: n=%d err=%v", len(active), err)
	}
	all, err := h.spaces.List(h.ctx, false)
	if err != nil || len(all) != 1 {
		t.Fatalf("full list: n=%d err=%v", len(all), err)
	}

	start, end := slot(7, 10, time.Hour)
	_, err = h.bookings.Create(h.ctx, BookingInput{SpaceID: h.space.ID, MemberName: "A", Attendees: 1, StartAt: start, EndAt: end})
	wantCode(t, err, availability.CodeInactive)
}

func TestPricingRuleCrudAndImport(t *testing.T) {
	h := newHarness(t)
	tenantWide, err := h.rules.Create(h.ctx, PricingRuleInput{
		Name:       "weekend",
		Kind:       spaces.RuleWeekday,
		Conditions: pricing.Conditions{Weekdays: []string{"sat", "sun"}},
		Adjustment: pricing.Adjustment{Percent: -10},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tenantWide.SpaceID != nil || !tenantWide.Active {
		t.Fatalf("unexpected rule: %+v", tenantWide)
	}

	_, err = h.rules.Create(h.ctx, PricingRuleInput{Name: "broken", Kind: spaces.RuleFlatFee})
	wantCode(t, err, "invalid_rule")

	imported, err := h.rules.ImportYAML(h.ctx, &h.space.ID, []byte(`
rules:
  - name: evening
    kind: time_window
    priority: 10
    conditions: {start_time: "18:00", end_time: "20:00"}
    adjustment: {percent: -20}
  - name: cleaning
    kind: flat_fee
    adjustment: {amount: 1500}
`))
	if err != nil {
		t.Fatalf("ImportYAML: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("want 2 imported rules, got %d", len(imported))
	}

	forSpace, err := h.rules.List(h.ctx, &h.space.ID)
	if err != nil || len(forSpace) != 3 {
		t.Fatalf("space rules include tenant-wide: n=%d err=%v", len(forSpace), err)
	}

	// re-import replaces only the space's own rules
	if _, err := h.rules.ImportYAML(h.ctx, &h.space.ID, []byte("rules: []\n")); err != nil {
		t.Fatalf("ImportYAML empty: %v", err)
	}
	forSpace, err = h.rules.List(h.ctx, &h.space.ID)
	if err != nil || len(forSpace) != 1 || forSpace[0].ID != tenantWide.ID {
		t.Fatalf("after replace: n=%d err=%v", len(forSpace), err)
	}

	_, err = h.rules.ImportYAML(h.ctx, nil, []byte("rules:\n  - name: x\n    kind: teleport\n"))
	wantCode(t, err, "invalid_rules_document")

	inactive := false
	updated, err := h.rules.Update(h.ctx, tenantWide.ID, PricingRuleInput{
		Name:       "weekend",
		Kind:       spaces.RuleWeekday,
		Active:     &inactive,
		Conditions: pricing.Conditions{Weekdays: []string{"sat"}},
		Adjustment: pricing.Adjustment{Percent: -5},
	})
	if err != nil || updated.Active {
		t.Fatalf("Update: %+v err=%v", updated, err)
	}
	if err := h.rules.Delete(h.ctx, tenantWide.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	wantCode(t, h.rules.Delete(h.ctx, tenantWide.ID), "pricing_rule_not_found")
}

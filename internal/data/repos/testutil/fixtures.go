package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
)

func SeedTenant(tb testing.TB, ctx context.Context, tx *gorm.DB) *types.Tenant {
	tb.Helper()
	t := &types.Tenant{
		ID:         uuid.New(),
		Name:       "Hive Coworking",
		Slug:       "hive-" + uuid.NewString()[:8],
		Currency:   "EUR",
		Timezone:   "UTC",
		TaxRateBps: 2000,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tenant: %v", err)
	}
	return t
}

func SeedSpace(tb testing.TB, ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) *types.Space {
	tb.Helper()
	s := &types.Space{
		ID:                    uuid.New(),
		TenantID:              tenantID,
		Name:                  "Boardroom",
		Kind:                  spaces.KindMeetingRoom,
		Capacity:              8,
		HourlyRate:            4000,
		DailyRate:             25000,
		DailyThresholdMinutes: 480,
		MinDurationMinutes:    30,
		MaxDurationMinutes:    720,
		BufferMinutes:         15,
		OpenTime:              "08:00",
		CloseTime:             "20:00",
		OpenWeekdays:          spaces.AllWeekdays,
		Active:                true,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed space: %v", err)
	}
	return s
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type SpaceInput struct {
	Name                  string `json:"name"`
	Kind                  string `json:"kind"`
	Capacity              int    `json:"capacity"`
	HourlyRate            int64  `json:"hourly_rate"`
	DailyRate             int64  `json:"daily_rate"`
	DailyThresholdMinutes int    `json:"daily_threshold_minutes"`
	MinDurationMinutes    int    `json:"min_duration_minutes"`
	MaxDurationMinutes    int    `json:"max_duration_minutes"`
	BufferMinutes         int    `json:"buffer_minutes"`
	OpenTime              string `json:"open_time"`
	CloseTime             string `json:"close_time"`
	OpenWeekdays          *int   `json:"open_weekdays,omitempty"`
}

type SpacePatch struct {
	Name                  *string `json:"name,omitempty"`
	Capacity              *int    `json:"capacity,omitempty"`
	HourlyRate            *int64  `json:"hourly_rate,omitempty"`
	DailyRate             *int64  `json:"daily_rate,omitempty"`
	DailyThresholdMinutes *int    `json:"daily_threshold_minutes,omitempty"`
	MinDurationMinutes    *int    `json:"min_duration_minutes,omitempty"`
	MaxDurationMinutes    *int    `json:"max_duration_minutes,omitempty"`
	BufferMinutes         *int    `json:"buffer_minutes,omitempty"`
	OpenTime              *string `json:"open_time,omitempty"`
	CloseTime             *string `json:"close_time,omitempty"`
	OpenWeekdays          *int    `json:"open_weekdays,omitempty"`
	Active                *bool   `json:"active,omitempty"`
}

type SpaceService interface {
	Create(ctx context.Context, in SpaceInput) (*types.Space, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Space, error)
	List(ctx context.Context, activeOnly bool) ([]*types.Space, error)
	Update(ctx context.Context, id uuid.UUID, in SpacePatch) (*types.Space, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*types.Space, error)
}

type spaceService struct {
	db     *gorm.DB
	log    *logger.Logger
	spaces repos.SpaceRepo
	clock  clock
}

func NewSpaceService(db *gorm.DB, log *logger.Logger, spaceRepo repos.SpaceRepo) SpaceService {
	return &spaceService{
		db:     db,
		log:    log.With("service", "SpaceService"),
		spaces: spaceRepo,
	}
}

func (s *spaceService) Create(ctx context.Context, in SpaceInput) (*types.Space, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sp := &types.Space{
		TenantID:              tenantID,
		Name:                  strings.TrimSpace(in.Name),
		Kind:                  strings.TrimSpace(in.Kind),
		Capacity:              in.Capacity,
		HourlyRate:            in.HourlyRate,
		DailyRate:             in.DailyRate,
		DailyThresholdMinutes: in.DailyThresholdMinutes,
		MinDurationMinutes:    in.MinDurationMinutes,
		MaxDurationMinutes:    in.MaxDurationMinutes,
		BufferMinutes:         in.BufferMinutes,
		OpenTime:              strings.TrimSpace(in.OpenTime),
		CloseTime:             strings.TrimSpace(in.CloseTime),
		OpenWeekdays:          spaces.AllWeekdays,
		Active:                true,
	}
	if sp.Kind == "" {
		sp.Kind = spaces.KindMeetingRoom
	}
	if in.OpenWeekdays != nil {
		sp.OpenWeekdays = *in.OpenWeekdays
	}
	if sp.OpenTime == "" {
		sp.OpenTime = "00:00"
	}
	if sp.CloseTime == "" {
		sp.CloseTime = "24:00"
	}
	if err := validateSpace(sp); err != nil {
		return nil, err
	}
	if _, err := s.spaces.Create(dbctx.Context{Ctx: ctx}, sp); err != nil {
		return nil, fmt.Errorf("create space: %w", err)
	}
	s.log.WithContext(ctx).Info("Space created", "space_id", sp.ID)
	return sp, nil
}

func validateSpace(sp *types.Space) error {
	if sp.Name == "" {
		return apierr.Invalid("name_required", "space name is required")
	}
	if !spaces.ValidKind(sp.Kind) {
		return apierr.Invalid("invalid_kind", "unknown space kind %q", sp.Kind)
	}
	if sp.Capacity < 1 {
		return apierr.Invalid("invalid_capacity", "capacity must be at least 1")
	}
	if sp.HourlyRate < 0 || sp.DailyRate < 0 {
		return apierr.Invalid("invalid_rate", "rates cannot be negative")
	}
	if sp.DailyThresholdMinutes < 0 || sp.MinDurationMinutes < 0 || sp.MaxDurationMinutes < 0 || sp.BufferMinutes < 0 {
		return apierr.Invalid("invalid_duration", "durations cannot be negative")
	}
	if sp.MaxDurationMinutes > 0 && sp.MinDurationMinutes > sp.MaxDurationMinutes {
		return apierr.Invalid("invalid_duration", "min duration exceeds max duration")
	}
	open, err := spaces.ParseClock(sp.OpenTime)
	if err != nil {
		return apierr.Invalid("invalid_hours", "open_time: %v", err)
	}
	closeAt, err := spaces.ParseClock(sp.CloseTime)
	if err != nil {
		return apierr.Invalid("invalid_hours", "close_time: %v", err)
	}
	if open >= closeAt {
		return apierr.Invalid("invalid_hours", "open_time must be before close_time")
	}
	if sp.OpenWeekdays <= 0 || sp.OpenWeekdays > spaces.AllWeekdays {
		return apierr.Invalid("invalid_weekdays", "open_weekdays must be a non-empty weekday mask")
	}
	return nil
}

func (s *spaceService) Get(ctx context.Context, id uuid.UUID) (*types.Space, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	sp, err := s.spaces.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load space: %w", err)
	}
	if sp == nil {
		return nil, apierr.NotFound("space_not_found", "space %s not found", id)
	}
	return sp, nil
}

func (s *spaceService) List(ctx context.Context, activeOnly bool) ([]*types.Space, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.spaces.List(dbctx.Context{Ctx: ctx}, tenantID, activeOnly)
}

func (s *spaceService) Update(ctx context.Context, id uuid.UUID, in SpacePatch) (*types.Space, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Space
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		sp, err := s.spaces.GetForUpdate(dbc, tenantID, id)
		if err != nil {
			return fmt.Errorf("load space: %w", err)
		}
		if sp == nil {
			return apierr.NotFound("space_not_found", "space %s not found", id)
		}
		if in.Name != nil {
			sp.Name = strings.TrimSpace(*in.Name)
		}
		if in.Capacity != nil {
			sp.Capacity = *in.Capacity
		}
		if in.HourlyRate != nil {
			sp.HourlyRate = *in.HourlyRate
		}
		if in.DailyRate != nil {
			sp.DailyRate = *in.DailyRate
		}
		if in.DailyThresholdMinutes != nil {
			sp.DailyThresholdMinutes = *in.DailyThresholdMinutes
		}
		if in.MinDurationMinutes != nil {
			sp.MinDurationMinutes = *in.MinDurationMinutes
		}
		if in.MaxDurationMinutes != nil {
			sp.MaxDurationMinutes = *in.MaxDurationMinutes
		}
		if in.BufferMinutes != nil {
			sp.BufferMinutes = *in.BufferMinutes
		}
		if in.OpenTime != nil {
			sp.OpenTime = strings.TrimSpace(*in.OpenTime)
		}
		if in.CloseTime != nil {
			sp.CloseTime = strings.TrimSpace(*in.CloseTime)
		}
		if in.OpenWeekdays != nil {
			sp.OpenWeekdays = *in.OpenWeekdays
		}
		if in.Active != nil {
			sp.Active = *in.Active
		}
		if err := validateSpace(sp); err != nil {
			return err
		}
		sp.UpdatedAt = s.clock.now()
		if err := s.spaces.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"name":                    sp.Name,
			"capacity":                sp.Capacity,
			"hourly_rate":             sp.HourlyRate,
			"daily_rate":              sp.DailyRate,
			"daily_threshold_minutes": sp.DailyThresholdMinutes,
			"min_duration_minutes":    sp.MinDurationMinutes,
			"max_duration_minutes":    sp.MaxDurationMinutes,
			"buffer_minutes":          sp.BufferMinutes,
			"open_time":               sp.OpenTime,
			"close_time":              sp.CloseTime,
			"open_weekdays":           sp.OpenWeekdays,
			"active":                  sp.Active,
			"updated_at":              sp.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("update space: %w", err)
		}
		out = sp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Deactivate hides the space from new bookings; existing bookings are kept.
func (s *spaceService) Deactivate(ctx context.Context, id uuid.UUID) (*types.Space, error) {
	inactive := false
	return s.Update(ctx, id, SpacePatch{Active: &inactive})
}

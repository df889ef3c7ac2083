package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/domain/crm"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

const defaultProbability = 10

type OpportunityInput struct {
	LeadID            *uuid.UUID `json:"lead_id,omitempty"`
	Title             string     `json:"title"`
	EstimatedValue    int64      `json:"estimated_value"`
	Probability       *int       `json:"probability,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	OwnerUserID       *uuid.UUID `json:"owner_user_id,omitempty"`
}

type OpportunityPatch struct {
	Title             *string    `json:"title,omitempty"`
	EstimatedValue    *int64     `json:"estimated_value,omitempty"`
	Probability       *int       `json:"probability,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	OwnerUserID       *uuid.UUID `json:"owner_user_id,omitempty"`
}

type OpportunityService interface {
	Create(ctx context.Context, in OpportunityInput) (*types.Opportunity, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Opportunity, error)
	List(ctx context.Context, f repos.OpportunityFilter) ([]*types.Opportunity, int64, error)
	Update(ctx context.Context, id uuid.UUID, in OpportunityPatch) (*types.Opportunity, error)
	MoveStage(ctx context.Context, id uuid.UUID, stage, lostReason string) (*types.Opportunity, error)
}

type opportunityService struct {
	db    *gorm.DB
	log   *logger.Logger
	opps  repos.OpportunityRepo
	leads repos.LeadRepo
	clock clock
}

func NewOpportunityService(db *gorm.DB, log *logger.Logger, opps repos.OpportunityRepo, leads repos.LeadRepo) OpportunityService {
	return &opportunityService{
		db:    db,
		log:   log.With("service", "OpportunityService"),
		opps:  opps,
		leads: leads,
	}
}

func (s *opportunityService) Create(ctx context.Context, in OpportunityInput) (*types.Opportunity, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Invalid("title_required", "opportunity title is required")
	}
	if in.EstimatedValue < 0 {
		return nil, apierr.Invalid("invalid_value", "estimated value cannot be negative")
	}
	prob := defaultProbability
	if in.Probability != nil {
		prob = *in.Probability
	}
	if prob < 0 || prob > 100 {
		return nil, apierr.Invalid("invalid_probability", "probability must be between 0 and 100")
	}

	dbc := dbctx.Context{Ctx: ctx}
	if in.LeadID != nil {
		lead, err := s.leads.GetByID(dbc, tenantID, *in.LeadID)
		if err != nil {
			return nil, fmt.Errorf("load lead: %w", err)
		}
		if lead == nil {
			return nil, apierr.NotFound("lead_not_found", "lead %s not found", *in.LeadID)
		}
	}
	opp := &types.Opportunity{
		TenantID:          tenantID,
		LeadID:            in.LeadID,
		Title:             title,
		Stage:             crm.StageProspecting,
		EstimatedValue:    in.EstimatedValue,
		Probability:       prob,
		ExpectedCloseDate: in.ExpectedCloseDate,
		OwnerUserID:       in.OwnerUserID,
	}
	if _, err := s.opps.Create(dbc, opp); err != nil {
		return nil, fmt.Errorf("create opportunity: %w", err)
	}
	return opp, nil
}

func (s *opportunityService) Get(ctx context.Context, id uuid.UUID) (*types.Opportunity, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	opp, err := s.opps.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load opportunity: %w", err)
	}
	if opp == nil {
		return nil, apierr.NotFound("opportunity_not_found", "opportunity %s not found", id)
	}
	return opp, nil
}

func (s *opportunityService) List(ctx context.Context, f repos.OpportunityFilter) ([]*types.Opportunity, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	if f.Stage != "" && !crm.ValidStage(f.Stage) {
		return nil, 0, apierr.Invalid("invalid_stage", "unknown stage %q", f.Stage)
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.opps.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *opportunityService) Update(ctx context.Context, id uuid.UUID, in OpportunityPatch) (*types.Opportunity, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Opportunity
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		opp, err := lockOpportunity(dbc, s.opps, tenantID, id)
		if err != nil {
			return err
		}
		if !crm.IsOpenStage(opp.Stage) {
			return apierr.Conflict("opportunity_closed", "opportunity is %s", opp.Stage)
		}
		if in.Title != nil {
			t := strings.TrimSpace(*in.Title)
			if t == "" {
				return apierr.Invalid("title_required", "opportunity title is required")
			}
			opp.Title = t
		}
		if in.EstimatedValue != nil {
			if *in.EstimatedValue < 0 {
				return apierr.Invalid("invalid_value", "estimated value cannot be negative")
			}
			opp.EstimatedValue = *in.EstimatedValue
		}
		if in.Probability != nil {
			if *in.Probability < 0 || *in.Probability > 100 {
				return apierr.Invalid("invalid_probability", "probability must be between 0 and 100")
			}
			opp.Probability = *in.Probability
		}
		if in.ExpectedCloseDate != nil {
			opp.ExpectedCloseDate = in.ExpectedCloseDate
		}
		if in.OwnerUserID != nil {
			opp.OwnerUserID = in.OwnerUserID
		}
		opp.UpdatedAt = s.clock.now()
		if err := s.opps.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"title":               opp.Title,
			"estimated_value":     opp.EstimatedValue,
			"probability":         opp.Probability,
			"expected_close_date": opp.ExpectedCloseDate,
			"owner_user_id":       opp.OwnerUserID,
			"updated_at":          opp.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("update opportunity: %w", err)
		}
		out = opp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *opportunityService) MoveStage(ctx context.Context, id uuid.UUID, stage, lostReason string) (*types.Opportunity, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	stage = strings.TrimSpace(stage)
	if !crm.ValidStage(stage) {
		return nil, apierr.Invalid("invalid_stage", "unknown stage %q", stage)
	}
	lostReason = strings.TrimSpace(lostReason)
	if stage == crm.StageLost && lostReason == "" {
		return nil, apierr.Invalid("lost_reason_required", "a reason is required to mark an opportunity lost")
	}
	var out *types.Opportunity
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		opp, err := lockOpportunity(dbc, s.opps, tenantID, id)
		if err != nil {
			return err
		}
		if err := moveStage(dbc, s.opps, opp, stage, lostReason, s.clock.now()); err != nil {
			return err
		}
		out = opp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockOpportunity(dbc dbctx.Context, opps repos.OpportunityRepo, tenantID, id uuid.UUID) (*types.Opportunity, error) {
	opp, err := opps.GetForUpdate(dbc, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load opportunity: %w", err)
	}
	if opp == nil {
		return nil, apierr.NotFound("opportunity_not_found", "opportunity %s not found", id)
	}
	return opp, nil
}

// moveStage applies a stage change to a locked opportunity and persists it.
func moveStage(dbc dbctx.Context, opps repos.OpportunityRepo, opp *types.Opportunity, stage, lostReason string, now time.Time) error {
	if !crm.CanMoveStage(opp.Stage, stage) {
		return apierr.Conflict("invalid_stage_transition", "opportunity cannot move from %s to %s", opp.Stage, stage)
	}
	updates := map[string]interface{}{
		"stage":      stage,
		"updated_at": now,
	}
	switch stage {
	case crm.StageWon:
		opp.Probability = 100
		opp.ClosedAt = timePtr(now)
		updates["probability"] = 100
		updates["closed_at"] = now
	case crm.StageLost:
		opp.Probability = 0
		opp.ClosedAt = timePtr(now)
		opp.LostReason = lostReason
		updates["probability"] = 0
		updates["closed_at"] = now
		updates["lost_reason"] = lostReason
	}
	if err := opps.UpdateFields(dbc, opp.TenantID, opp.ID, updates); err != nil {
		return fmt.Errorf("update opportunity stage: %w", err)
	}
	opp.Stage = stage
	opp.UpdatedAt = now
	return nil
}

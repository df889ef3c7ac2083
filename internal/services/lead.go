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

type LeadInput struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Company     string     `json:"company"`
	Source      string     `json:"source"`
	Notes       string     `json:"notes"`
	OwnerUserID *uuid.UUID `json:"owner_user_id,omitempty"`
}

type LeadPatch struct {
	Name        *string    `json:"name,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Company     *string    `json:"company,omitempty"`
	Source      *string    `json:"source,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	OwnerUserID *uuid.UUID `json:"owner_user_id,omitempty"`
}

type ConvertLeadInput struct {
	Title             string     `json:"title"`
	EstimatedValue    int64      `json:"estimated_value"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
}

type LeadService interface {
	Create(ctx context.Context, in LeadInput) (*types.Lead, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Lead, error)
	List(ctx context.Context, f repos.LeadFilter) ([]*types.Lead, int64, error)
	Update(ctx context.Context, id uuid.UUID, in LeadPatch) (*types.Lead, error)
	ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*types.Lead, error)
	Convert(ctx context.Context, id uuid.UUID, in ConvertLeadInput) (*types.Lead, *types.Opportunity, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type leadService struct {
	db    *gorm.DB
	log   *logger.Logger
	leads repos.LeadRepo
	opps  repos.OpportunityRepo
	clock clock
}

func NewLeadService(db *gorm.DB, log *logger.Logger, leads repos.LeadRepo, opps repos.OpportunityRepo) LeadService {
	return &leadService{
		db:    db,
		log:   log.With("service", "LeadService"),
		leads: leads,
		opps:  opps,
	}
}

func (s *leadService) Create(ctx context.Context, in LeadInput) (*types.Lead, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	lead := &types.Lead{
		TenantID:    tenantID,
		Name:        strings.TrimSpace(in.Name),
		Email:       normalizeEmail(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Company:     strings.TrimSpace(in.Company),
		Source:      strings.TrimSpace(in.Source),
		Status:      crm.LeadStatusNew,
		Notes:       in.Notes,
		OwnerUserID: in.OwnerUserID,
	}
	if lead.Source == "" {
		lead.Source = crm.LeadSourceOther
	}
	if err := validateLead(lead); err != nil {
		return nil, err
	}
	if _, err := s.leads.Create(dbctx.Context{Ctx: ctx}, lead); err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return lead, nil
}

func validateLead(l *types.Lead) error {
	if l.Name == "" {
		return apierr.Invalid("name_required", "lead name is required")
	}
	if l.Email == "" && l.Phone == "" {
		return apierr.Invalid("contact_required", "an email or a phone number is required")
	}
	if l.Email != "" && !validEmail(l.Email) {
		return apierr.Invalid("invalid_email", "invalid email %q", l.Email)
	}
	if !crm.ValidLeadSource(l.Source) {
		return apierr.Invalid("invalid_source", "unknown lead source %q", l.Source)
	}
	return nil
}

func (s *leadService) Get(ctx context.Context, id uuid.UUID) (*types.Lead, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.get(dbctx.Context{Ctx: ctx}, tenantID, id)
}

func (s *leadService) get(dbc dbctx.Context, tenantID, id uuid.UUID) (*types.Lead, error) {
	lead, err := s.leads.GetByID(dbc, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load lead: %w", err)
	}
	if lead == nil {
		return nil, apierr.NotFound("lead_not_found", "lead %s not found", id)
	}
	return lead, nil
}

func (s *leadService) List(ctx context.Context, f repos.LeadFilter) ([]*types.Lead, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !crm.ValidLeadStatus(f.Status) {
		return nil, 0, apierr.Invalid("invalid_status", "unknown lead status %q", f.Status)
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.leads.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *leadService) Update(ctx context.Context, id uuid.UUID, in LeadPatch) (*types.Lead, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Lead
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		lead, err := s.get(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if lead.Status == crm.LeadStatusConverted {
			return apierr.Conflict("lead_converted", "converted leads are read-only")
		}
		if in.Name != nil {
			lead.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			lead.Email = normalizeEmail(*in.Email)
		}
		if in.Phone != nil {
			lead.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Company != nil {
			lead.Company = strings.TrimSpace(*in.Company)
		}
		if in.Source != nil {
			lead.Source = strings.TrimSpace(*in.Source)
		}
		if in.Notes != nil {
			lead.Notes = *in.Notes
		}
		if in.OwnerUserID != nil {
			lead.OwnerUserID = in.OwnerUserID
		}
		if err := validateLead(lead); err != nil {
			return err
		}
		lead.UpdatedAt = s.clock.now()
		if err := s.leads.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"name":          lead.Name,
			"email":         lead.Email,
			"phone":         lead.Phone,
			"company":       lead.Company,
			"source":        lead.Source,
			"notes":         lead.Notes,
			"owner_user_id": lead.OwnerUserID,
			"updated_at":    lead.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("update lead: %w", err)
		}
		out = lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *leadService) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*types.Lead, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	status = strings.TrimSpace(status)
	if !crm.ValidLeadStatus(status) {
		return nil, apierr.Invalid("invalid_status", "unknown lead status %q", status)
	}
	if status == crm.LeadStatusConverted {
		return nil, apierr.Invalid("use_convert", "leads are converted through the convert operation")
	}
	var out *types.Lead
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		lead, err := s.get(dbc, tenantID, id)
		if err != nil {
			return err
		}
		if lead.Status == status {
			out = lead
			return nil
		}
		if !crm.CanTransitionLead(lead.Status, status) {
			return apierr.Conflict("invalid_transition", "lead cannot move from %s to %s", lead.Status, status)
		}
		now := s.clock.now()
		if err := s.leads.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":     status,
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("update lead status: %w", err)
		}
		lead.Status = status
		lead.UpdatedAt = now
		out = lead
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *leadService) Convert(ctx context.Context, id uuid.UUID, in ConvertLeadInput) (*types.Lead, *types.Opportunity, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	if in.EstimatedValue < 0 {
		return nil, nil, apierr.Invalid("invalid_value", "estimated value cannot be negative")
	}
	var (
		lead *types.Lead
		opp  *types.Opportunity
	)
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		l, err := s.get(dbc, tenantID, id)
		if err != nil {
			return err
		}
		switch l.Status {
		case crm.LeadStatusConverted:
			return apierr.Conflict("lead_already_converted", "lead %s was already converted", id)
		case crm.LeadStatusQualified:
		default:
			return apierr.Conflict("lead_not_qualified", "only qualified leads can be converted (status %s)", l.Status)
		}
		title := strings.TrimSpace(in.Title)
		if title == "" {
			title = l.Company
		}
		if title == "" {
			title = l.Name
		}
		o := &types.Opportunity{
			TenantID:          tenantID,
			LeadID:            &l.ID,
			Title:             title,
			Stage:             crm.StageProspecting,
			EstimatedValue:    in.EstimatedValue,
			Probability:       defaultProbability,
			ExpectedCloseDate: in.ExpectedCloseDate,
			OwnerUserID:       l.OwnerUserID,
		}
		if _, err := s.opps.Create(dbc, o); err != nil {
			return fmt.Errorf("create opportunity: %w", err)
		}
		now := s.clock.now()
		if err := s.leads.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":                   crm.LeadStatusConverted,
			"converted_opportunity_id": o.ID,
			"updated_at":               now,
		}); err != nil {
			return fmt.Errorf("mark lead converted: %w", err)
		}
		l.Status = crm.LeadStatusConverted
		l.ConvertedOpportunityID = &o.ID
		l.UpdatedAt = now
		lead, opp = l, o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.WithContext(ctx).Info("Lead converted", "lead_id", lead.ID, "opportunity_id", opp.ID)
	return lead, opp, nil
}

func (s *leadService) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}
	ok, err := s.leads.Delete(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if !ok {
		return apierr.NotFound("lead_not_found", "lead %s not found", id)
	}
	return nil
}

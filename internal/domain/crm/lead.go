package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LeadStatusNew          = "new"
	LeadStatusContacted    = "contacted"
	LeadStatusQualified    = "qualified"
	LeadStatusDisqualified = "disqualified"
	LeadStatusConverted    = "converted"
)

const (
	LeadSourceWebsite  = "website"
	LeadSourceReferral = "referral"
	LeadSourceWalkIn   = "walk_in"
	LeadSourceEvent    = "event"
	LeadSourceOther    = "other"
)

type Lead struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_lead_tenant_status,priority:1" json:"tenant_id"`

	Name    string `gorm:"not null;column:name" json:"name"`
	Email   string `gorm:"column:email;index" json:"email"`
	Phone   string `gorm:"column:phone" json:"phone"`
	Company string `gorm:"column:company" json:"company"`
	Source  string `gorm:"not null;column:source" json:"source"`
	Status  string `gorm:"not null;column:status;index:idx_lead_tenant_status,priority:2" json:"status"`
	Notes   string `gorm:"column:notes;type:text" json:"notes"`

	OwnerUserID            *uuid.UUID `gorm:"type:uuid;column:owner_user_id" json:"owner_user_id,omitempty"`
	ConvertedOpportunityID *uuid.UUID `gorm:"type:uuid;column:converted_opportunity_id" json:"converted_opportunity_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Lead) TableName() string { return "lead" }

func (l *Lead) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

var leadTransitions = map[string][]string{
	LeadStatusNew:          {LeadStatusContacted, LeadStatusQualified, LeadStatusDisqualified},
	LeadStatusContacted:    {LeadStatusQualified, LeadStatusDisqualified},
	LeadStatusQualified:    {LeadStatusDisqualified},
	LeadStatusDisqualified: {LeadStatusNew},
}

// CanTransitionLead reports whether a manual status change is allowed.
// Conversion is a separate operation and never a manual transition.
func CanTransitionLead(from, to string) bool {
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidLeadSource(s string) bool {
	switch s {
	case LeadSourceWebsite, LeadSourceReferral, LeadSourceWalkIn, LeadSourceEvent, LeadSourceOther:
		return true
	}
	return false
}

func ValidLeadStatus(s string) bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusDisqualified, LeadStatusConverted:
		return true
	}
	return false
}

package crm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StageProspecting = "prospecting"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

type Opportunity struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID  `gorm:"type:uuid;not null;index:idx_opp_tenant_stage,priority:1" json:"tenant_id"`
	LeadID   *uuid.UUID `gorm:"type:uuid;column:lead_id;index" json:"lead_id,omitempty"`

	Title             string     `gorm:"not null;column:title" json:"title"`
	Stage             string     `gorm:"not null;column:stage;index:idx_opp_tenant_stage,priority:2" json:"stage"`
	EstimatedValue    int64      `gorm:"not null;column:estimated_value" json:"estimated_value"`
	Probability       int        `gorm:"not null;column:probability" json:"probability"`
	ExpectedCloseDate *time.Time `gorm:"column:expected_close_date" json:"expected_close_date,omitempty"`
	ClosedAt          *time.Time `gorm:"column:closed_at" json:"closed_at,omitempty"`
	LostReason        string     `gorm:"column:lost_reason" json:"lost_reason,omitempty"`
	OwnerUserID       *uuid.UUID `gorm:"type:uuid;column:owner_user_id" json:"owner_user_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Opportunity) TableName() string { return "opportunity" }

func (o *Opportunity) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

var stageOrder = map[string]int{
	StageProspecting: 0,
	StageProposal:    1,
	StageNegotiation: 2,
}

func IsOpenStage(s string) bool {
	_, ok := stageOrder[s]
	return ok
}

func ValidStage(s string) bool {
	return IsOpenStage(s) || s == StageWon || s == StageLost
}

// CanMoveStage allows forward moves between open stages and closing from any
// open stage. Closed stages are terminal.
func CanMoveStage(from, to string) bool {
	fromIdx, open := stageOrder[from]
	if !open {
		return false
	}
	if to == StageWon || to == StageLost {
		return true
	}
	toIdx, ok := stageOrder[to]
	return ok && toIdx > fromIdx
}

package spaces

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RuleRateOverride     = "rate_override"
	RuleTimeWindow       = "time_window"
	RuleWeekday          = "weekday"
	RuleDurationDiscount = "duration_discount"
	RuleMemberDiscount   = "member_discount"
	RuleLeadTime         = "lead_time"
	RuleFlatFee          = "flat_fee"
)

// PricingRule is the stored form of a pricing adjustment. Conditions and
// Adjustment are decoded by the pricing engine according to Kind.
type PricingRule struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID  `gorm:"type:uuid;not null;index:idx_pricing_rule_tenant_space,priority:1" json:"tenant_id"`
	SpaceID  *uuid.UUID `gorm:"type:uuid;column:space_id;index:idx_pricing_rule_tenant_space,priority:2" json:"space_id,omitempty"`

	Name      string `gorm:"not null;column:name" json:"name"`
	Kind      string `gorm:"not null;column:kind" json:"kind"`
	Priority  int    `gorm:"not null;column:priority" json:"priority"`
	Exclusive bool   `gorm:"not null;column:exclusive" json:"exclusive"`
	Active    bool   `gorm:"not null;column:active" json:"active"`

	ValidFrom *time.Time `gorm:"column:valid_from" json:"valid_from,omitempty"`
	ValidTo   *time.Time `gorm:"column:valid_to" json:"valid_to,omitempty"`

	Conditions datatypes.JSON `gorm:"column:conditions" json:"conditions"`
	Adjustment datatypes.JSON `gorm:"column:adjustment" json:"adjustment"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (PricingRule) TableName() string { return "pricing_rule" }

func (r *PricingRule) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func ValidRuleKind(k string) bool {
	switch k {
	case RuleRateOverride, RuleTimeWindow, RuleWeekday, RuleDurationDiscount,
		RuleMemberDiscount, RuleLeadTime, RuleFlatFee:
		return true
	}
	return false
}

package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
)

// Conditions restrict when a rule matches. Unset fields do not constrain.
type Conditions struct {
	// Weekdays are lower-case English names or three-letter abbreviations.
	Weekdays []string `json:"weekdays,omitempty" yaml:"weekdays,omitempty"`
	// StartTime/EndTime ("HH:MM") bound the time_window rule in local time.
	StartTime string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	// MinMinutes is the duration threshold of duration_discount.
	MinMinutes int `json:"min_minutes,omitempty" yaml:"min_minutes,omitempty"`
	// Tiers lists member tiers that member_discount applies to.
	Tiers []string `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	// MinDaysAhead matches bookings made at least this many days ahead.
	MinDaysAhead int `json:"min_days_ahead,omitempty" yaml:"min_days_ahead,omitempty"`
	// WithinHours matches bookings made less than this many hours ahead.
	WithinHours int `json:"within_hours,omitempty" yaml:"within_hours,omitempty"`
}

// Adjustment is the effect of a matching rule. Percent is signed: negative
// values are discounts.
type Adjustment struct {
	Percent    float64 `json:"percent,omitempty" yaml:"percent,omitempty"`
	Amount     int64   `json:"amount,omitempty" yaml:"amount,omitempty"`
	HourlyRate int64   `json:"hourly_rate,omitempty" yaml:"hourly_rate,omitempty"`
}

type Rule struct {
	ID         uuid.UUID
	Name       string
	Kind       string
	Priority   int
	Exclusive  bool
	Active     bool
	ValidFrom  *time.Time
	ValidTo    *time.Time
	Conditions Conditions
	Adjustment Adjustment
}

// FromModel decodes the stored JSON columns of a pricing rule.
func FromModel(m *spaces.PricingRule) (Rule, error) {
	r := Rule{
		ID:        m.ID,
		Name:      m.Name,
		Kind:      m.Kind,
		Priority:  m.Priority,
		Exclusive: m.Exclusive,
		Active:    m.Active,
		ValidFrom: m.ValidFrom,
		ValidTo:   m.ValidTo,
	}
	if len(m.Conditions) > 0 {
		if err := json.Unmarshal(m.Conditions, &r.Conditions); err != nil {
			return Rule{}, fmt.Errorf("rule %q conditions: %w", m.Name, err)
		}
	}
	if len(m.Adjustment) > 0 {
		if err := json.Unmarshal(m.Adjustment, &r.Adjustment); err != nil {
			return Rule{}, fmt.Errorf("rule %q adjustment: %w", m.Name, err)
		}
	}
	return r, nil
}

func FromModels(ms []*spaces.PricingRule) ([]Rule, error) {
	out := make([]Rule, 0, len(ms))
	for _, m := range ms {
		r, err := FromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Check reports configuration errors that would make the rule meaningless.
func (r Rule) Check() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name required")
	}
	if !spaces.ValidRuleKind(r.Kind) {
		return fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
	}
	if r.ValidFrom != nil && r.ValidTo != nil && !r.ValidTo.After(*r.ValidFrom) {
		return fmt.Errorf("rule %q: valid_to must be after valid_from", r.Name)
	}
	if _, err := parseWeekdays(r.Conditions.Weekdays); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	c, a := r.Conditions, r.Adjustment
	switch r.Kind {
	case spaces.RuleRateOverride:
		if a.HourlyRate <= 0 {
			return fmt.Errorf("rule %q: hourly_rate must be positive", r.Name)
		}
	case spaces.RuleTimeWindow:
		if _, _, err := windowMinutes(c.StartTime, c.EndTime); err != nil {
			return fmt.Errorf("rule %q: %w", r.Name, err)
		}
	case spaces.RuleWeekday:
		if len(c.Weekdays) == 0 {
			return fmt.Errorf("rule %q: weekdays required", r.Name)
		}
	case spaces.RuleDurationDiscount:
		if c.MinMinutes <= 0 {
			return fmt.Errorf("rule %q: min_minutes must be positive", r.Name)
		}
	case spaces.RuleMemberDiscount:
		if len(c.Tiers) == 0 {
			return fmt.Errorf("rule %q: tiers required", r.Name)
		}
	case spaces.RuleLeadTime:
		if c.MinDaysAhead <= 0 && c.WithinHours <= 0 {
			return fmt.Errorf("rule %q: min_days_ahead or within_hours required", r.Name)
		}
	case spaces.RuleFlatFee:
		if a.Amount == 0 {
			return fmt.Errorf("rule %q: amount required", r.Name)
		}
	}
	if r.Kind != spaces.RuleRateOverride && r.Kind != spaces.RuleFlatFee && a.Percent == 0 {
		return fmt.Errorf("rule %q: percent required", r.Name)
	}
	if a.Percent < -100 {
		return fmt.Errorf("rule %q: percent below -100", r.Name)
	}
	return nil
}

// ValidAt reports whether the rule is active and its validity range covers t.
func (r Rule) ValidAt(t time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && !t.Before(*r.ValidTo) {
		return false
	}
	return true
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekdays(names []string) (map[time.Weekday]bool, error) {
	out := make(map[time.Weekday]bool, len(names))
	for _, n := range names {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", n)
		}
		out[d] = true
	}
	return out, nil
}

func windowMinutes(start, end string) (int, int, error) {
	s, err := spaces.ParseClock(start)
	if err != nil {
		return 0, 0, fmt.Errorf("start_time: %w", err)
	}
	e, err := spaces.ParseClock(end)
	if err != nil {
		return 0, 0, fmt.Errorf("end_time: %w", err)
	}
	if e <= s {
		return 0, 0, fmt.Errorf("end_time must be after start_time")
	}
	return s, e, nil
}

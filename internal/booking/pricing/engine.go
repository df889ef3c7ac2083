// Package pricing computes the price of a booking from the space rates and
// the tenant's pricing rules.
package pricing

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
	"github.com/yungbote/deskbase-backend/internal/platform/money"
)

const minutesPerDay = 24 * 60

type Input struct {
	Currency              string
	HourlyRate            int64
	DailyRate             int64
	DailyThresholdMinutes int
	TaxRateBps            int64

	Start      time.Time
	End        time.Time
	BookedAt   time.Time
	MemberTier string
	Location   *time.Location

	Rules []Rule
}

// Line records what a single rule changed.
type Line struct {
	RuleID uuid.UUID `json:"rule_id"`
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	Amount int64     `json:"amount"`
}

type Quote struct {
	Currency    string `json:"currency"`
	Minutes     int    `json:"minutes"`
	HourlyRate  int64  `json:"hourly_rate"`
	DailyRate   bool   `json:"daily_rate"`
	BaseAmount  int64  `json:"base_amount"`
	Adjustments []Line `json:"adjustments"`
	Subtotal    int64  `json:"subtotal"`
	TaxAmount   int64  `json:"tax_amount"`
	Total       int64  `json:"total"`
}

// Evaluate prices a booking. Rules run by descending priority (ties by name,
// then id). The first matching rate_override sets the hourly rate before the
// base is computed; the remaining matching rules adjust the running amount in
// order until an exclusive one has been applied. The running amount never
// drops below zero and tax is added last.
func Evaluate(in Input) Quote {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	minutes := 0
	if in.End.After(in.Start) {
		minutes = int(in.End.Sub(in.Start) / time.Minute)
	}
	q := Quote{
		Currency:    in.Currency,
		Minutes:     minutes,
		HourlyRate:  in.HourlyRate,
		Adjustments: []Line{},
	}

	rules := applicable(in.Rules, in.Start)
	ctx := matchContext{in: in, loc: loc, minutes: minutes}

	var override *Rule
	for i := range rules {
		if rules[i].Kind == spaces.RuleRateOverride && ctx.matches(rules[i]) {
			override = &rules[i]
			break
		}
	}
	if override != nil {
		q.HourlyRate = override.Adjustment.HourlyRate
	}

	q.BaseAmount, q.DailyRate = base(in, q.HourlyRate, minutes)
	running := q.BaseAmount

	if override != nil {
		standard, _ := base(in, in.HourlyRate, minutes)
		q.Adjustments = append(q.Adjustments, Line{
			RuleID: override.ID,
			Name:   override.Name,
			Kind:   override.Kind,
			Amount: q.BaseAmount - standard,
		})
	}

	if override == nil || !override.Exclusive {
		for _, r := range rules {
			if r.Kind == spaces.RuleRateOverride || !ctx.matches(r) {
				continue
			}
			delta := ctx.delta(r, q.BaseAmount, running)
			if running+delta < 0 {
				delta = -running
			}
			running += delta
			q.Adjustments = append(q.Adjustments, Line{RuleID: r.ID, Name: r.Name, Kind: r.Kind, Amount: delta})
			if r.Exclusive {
				break
			}
		}
	}

	q.Subtotal = running
	q.TaxAmount = money.Bps(running, in.TaxRateBps)
	q.Total = q.Subtotal + q.TaxAmount
	return q
}

// base returns the undiscounted price and whether the daily rate was used.
// The daily rate is charged per started day once the duration reaches the
// threshold; otherwise the hourly rate is prorated per minute.
func base(in Input, hourly int64, minutes int) (int64, bool) {
	threshold := in.DailyThresholdMinutes
	if threshold <= 0 {
		threshold = minutesPerDay
	}
	if in.DailyRate > 0 && minutes >= threshold {
		days := (minutes + minutesPerDay - 1) / minutesPerDay
		return int64(days) * in.DailyRate, true
	}
	return money.MulDiv(hourly, int64(minutes), 60), false
}

func applicable(rules []Rule, at time.Time) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.ValidAt(at) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

type matchContext struct {
	in      Input
	loc     *time.Location
	minutes int
}

func (m matchContext) matches(r Rule) bool {
	c := r.Conditions
	if len(c.Weekdays) > 0 {
		days, err := parseWeekdays(c.Weekdays)
		if err != nil || !days[m.in.Start.In(m.loc).Weekday()] {
			return false
		}
	}
	switch r.Kind {
	case spaces.RuleTimeWindow:
		return m.windowMinutes(c) > 0
	case spaces.RuleWeekday:
		return len(c.Weekdays) > 0
	case spaces.RuleDurationDiscount:
		return c.MinMinutes > 0 && m.minutes >= c.MinMinutes
	case spaces.RuleMemberDiscount:
		tier := strings.ToLower(strings.TrimSpace(m.in.MemberTier))
		if tier == "" {
			return false
		}
		for _, t := range c.Tiers {
			if strings.ToLower(strings.TrimSpace(t)) == tier {
				return true
			}
		}
		return false
	case spaces.RuleLeadTime:
		if m.in.BookedAt.IsZero() {
			return false
		}
		ahead := m.in.Start.Sub(m.in.BookedAt)
		if c.MinDaysAhead > 0 && ahead >= time.Duration(c.MinDaysAhead)*24*time.Hour {
			return true
		}
		return c.WithinHours > 0 && ahead < time.Duration(c.WithinHours)*time.Hour
	case spaces.RuleRateOverride, spaces.RuleFlatFee:
		return true
	}
	return false
}

func (m matchContext) delta(r Rule, baseAmount, running int64) int64 {
	a := r.Adjustment
	switch r.Kind {
	case spaces.RuleFlatFee:
		return a.Amount
	case spaces.RuleTimeWindow:
		if m.minutes == 0 {
			return 0
		}
		inside := int64(m.windowMinutes(r.Conditions))
		portion := money.MulDiv(baseAmount, inside, int64(m.minutes))
		return money.Percent(portion, a.Percent)
	default:
		return money.Percent(running, a.Percent)
	}
}

// windowMinutes counts booking minutes inside the rule's local time-of-day
// window, summed over every day the booking touches.
func (m matchContext) windowMinutes(c Conditions) int {
	ws, we, err := windowMinutes(c.StartTime, c.EndTime)
	if err != nil || !m.in.End.After(m.in.Start) {
		return 0
	}
	start := m.in.Start.In(m.loc)
	end := m.in.End.In(m.loc)
	total := 0
	y, mo, d := start.Date()
	for day := time.Date(y, mo, d, 0, 0, 0, 0, m.loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		// wall-clock bounds, so DST days keep the window at its local times
		dy, dm, dd := day.Date()
		wStart := time.Date(dy, dm, dd, ws/60, ws%60, 0, 0, m.loc)
		wEnd := time.Date(dy, dm, dd, we/60, we%60, 0, 0, m.loc)
		s := maxTime(start, wStart)
		e := minTime(end, wEnd)
		if e.After(s) {
			total += int(e.Sub(s) / time.Minute)
		}
	}
	return total
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

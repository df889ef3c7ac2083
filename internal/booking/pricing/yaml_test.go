package pricing

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

const sampleRules = `
rules:
  - name: Evening surcharge
    kind: time_window
    priority: 10
    conditions:
      start_time: "18:00"
      end_time: "22:00"
    adjustment:
      percent: 20
  - name: Weekend
    kind: weekday
    priority: 5
    exclusive: true
    active: false
    valid_from: 2026-01-01
    conditions:
      weekdays: [sat, sunday]
    adjustment:
      percent: -15
`

func TestParseYAML(t *testing.T) {
	rules, err := ParseYAML([]byte(sampleRules))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules: want=2 got=%d", len(rules))
	}
	if !rules[0].Active || rules[1].Active {
		t.Fatalf("active defaults: want [true false] got [%v %v]", rules[0].Active, rules[1].Active)
	}
	if rules[1].ValidFrom == nil || rules[1].ValidFrom.Year() != 2026 {
		t.Fatalf("valid_from not parsed: %v", rules[1].ValidFrom)
	}

	spaceID := uuid.New()
	m, err := ToModel(rules[0], uuid.New(), &spaceID)
	if err != nil {
		t.Fatalf("ToModel: %v", err)
	}
	var cond Conditions
	if err := json.Unmarshal(m.Conditions, &cond); err != nil {
		t.Fatalf("conditions json: %v", err)
	}
	if cond.StartTime != "18:00" {
		t.Fatalf("start_time: want=18:00 got=%s", cond.StartTime)
	}
	back, err := FromModel(m)
	if err != nil {
		t.Fatalf("FromModel: %v", err)
	}
	if back.Adjustment.Percent != 20 {
		t.Fatalf("percent: want=20 got=%v", back.Adjustment.Percent)
	}
}

func TestParseYAMLRejectsBadRules(t *testing.T) {
	cases := map[string]string{
		"unknown kind":  "rules:\n  - name: x\n    kind: bogus\n",
		"unknown field": "rules:\n  - name: x\n    kind: flat_fee\n    amuont: 5\n",
		"bad window":    "rules:\n  - name: x\n    kind: time_window\n    conditions: {start_time: \"20:00\", end_time: \"18:00\"}\n    adjustment: {percent: 5}\n",
		"duplicate":     "rules:\n  - {name: x, kind: flat_fee, adjustment: {amount: 1}}\n  - {name: x, kind: flat_fee, adjustment: {amount: 2}}\n",
		"bad weekday":   "rules:\n  - {name: x, kind: weekday, conditions: {weekdays: [funday]}, adjustment: {percent: 5}}\n",
	}
	for name, doc := range cases {
		if _, err := ParseYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "rule") && !strings.Contains(err.Error(), "parse") {
			t.Fatalf("%s: unexpected error text %v", name, err)
		}
	}
}

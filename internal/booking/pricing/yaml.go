package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
)

type yamlDocument struct {
	Rules []yamlRule `yaml:"rules"`
}

type yamlRule struct {
	Name       string     `yaml:"name"`
	Kind       string     `yaml:"kind"`
	Priority   int        `yaml:"priority"`
	Exclusive  bool       `yaml:"exclusive"`
	Active     *bool      `yaml:"active"`
	ValidFrom  string     `yaml:"valid_from"`
	ValidTo    string     `yaml:"valid_to"`
	Conditions Conditions `yaml:"conditions"`
	Adjustment Adjustment `yaml:"adjustment"`
}

// ParseYAML decodes a rules document. Rules default to active; unknown fields
// are rejected so typos do not silently drop conditions.
func ParseYAML(data []byte) ([]Rule, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc yamlDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse pricing rules: %w", err)
	}
	out := make([]Rule, 0, len(doc.Rules))
	seen := map[string]bool{}
	for i, yr := range doc.Rules {
		r := Rule{
			Name:       strings.TrimSpace(yr.Name),
			Kind:       strings.TrimSpace(yr.Kind),
			Priority:   yr.Priority,
			Exclusive:  yr.Exclusive,
			Active:     yr.Active == nil || *yr.Active,
			Conditions: yr.Conditions,
			Adjustment: yr.Adjustment,
		}
		var err error
		if r.ValidFrom, err = parseDate(yr.ValidFrom); err != nil {
			return nil, fmt.Errorf("rule %d valid_from: %w", i+1, err)
		}
		if r.ValidTo, err = parseDate(yr.ValidTo); err != nil {
			return nil, fmt.Errorf("rule %d valid_to: %w", i+1, err)
		}
		if err := r.Check(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %d: duplicate name %q", i+1, r.Name)
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}

// ToModel encodes a rule for storage under tenantID and, optionally, a space.
func ToModel(r Rule, tenantID uuid.UUID, spaceID *uuid.UUID) (*spaces.PricingRule, error) {
	cond, err := json.Marshal(r.Conditions)
	if err != nil {
		return nil, err
	}
	adj, err := json.Marshal(r.Adjustment)
	if err != nil {
		return nil, err
	}
	return &spaces.PricingRule{
		ID:         r.ID,
		TenantID:   tenantID,
		SpaceID:    spaceID,
		Name:       r.Name,
		Kind:       r.Kind,
		Priority:   r.Priority,
		Exclusive:  r.Exclusive,
		Active:     r.Active,
		ValidFrom:  r.ValidFrom,
		ValidTo:    r.ValidTo,
		Conditions: datatypes.JSON(cond),
		Adjustment: datatypes.JSON(adj),
	}, nil
}

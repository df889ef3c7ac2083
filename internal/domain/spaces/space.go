package spaces

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	KindMeetingRoom   = "meeting_room"
	KindDesk          = "desk"
	KindPrivateOffice = "private_office"
	KindEventSpace    = "event_space"
)

// AllWeekdays is the OpenWeekdays mask with every day set (bit 0 = Sunday).
const AllWeekdays = 0x7f

type Space struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_space_tenant_active,priority:1" json:"tenant_id"`

	Name     string `gorm:"not null;column:name" json:"name"`
	Kind     string `gorm:"not null;column:kind" json:"kind"`
	Capacity int    `gorm:"not null;column:capacity" json:"capacity"`

	HourlyRate            int64 `gorm:"not null;column:hourly_rate" json:"hourly_rate"`
	DailyRate             int64 `gorm:"not null;column:daily_rate" json:"daily_rate"`
	DailyThresholdMinutes int   `gorm:"not null;column:daily_threshold_minutes" json:"daily_threshold_minutes"`

	MinDurationMinutes int `gorm:"not null;column:min_duration_minutes" json:"min_duration_minutes"`
	MaxDurationMinutes int `gorm:"not null;column:max_duration_minutes" json:"max_duration_minutes"`
	BufferMinutes      int `gorm:"not null;column:buffer_minutes" json:"buffer_minutes"`

	OpenTime     string `gorm:"not null;column:open_time" json:"open_time"`
	CloseTime    string `gorm:"not null;column:close_time" json:"close_time"`
	OpenWeekdays int    `gorm:"not null;column:open_weekdays" json:"open_weekdays"`

	Active bool `gorm:"not null;column:active;index:idx_space_tenant_active,priority:2" json:"active"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Space) TableName() string { return "space" }

func (s *Space) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Space) Buffer() time.Duration {
	if s == nil || s.BufferMinutes <= 0 {
		return 0
	}
	return time.Duration(s.BufferMinutes) * time.Minute
}

func (s *Space) OpenOn(day time.Weekday) bool {
	if s == nil {
		return false
	}
	return s.OpenWeekdays&(1<<uint(day)) != 0
}

func ValidKind(k string) bool {
	switch k {
	case KindMeetingRoom, KindDesk, KindPrivateOffice, KindEventSpace:
		return true
	}
	return false
}

// ParseClock parses "HH:MM" into minutes after midnight. "24:00" is accepted
// as a closing time.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}

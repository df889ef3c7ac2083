package tenant

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant is a coworking operator account. Every other row is scoped by its ID.
type Tenant struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"not null;column:name" json:"name"`
	Slug       string    `gorm:"not null;uniqueIndex;column:slug" json:"slug"`
	Currency   string    `gorm:"not null;size:3;column:currency" json:"currency"`
	Timezone   string    `gorm:"not null;column:timezone" json:"timezone"`
	TaxRateBps int64     `gorm:"not null;column:tax_rate_bps" json:"tax_rate_bps"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenant" }

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Location resolves the tenant time zone, falling back to UTC.
func (t *Tenant) Location() *time.Location {
	if t == nil || t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Sequence holds the last issued document number per tenant, prefix and year.
type Sequence struct {
	TenantID uuid.UUID `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	Prefix   string    `gorm:"primaryKey;column:prefix" json:"prefix"`
	Year     int       `gorm:"primaryKey;column:year" json:"year"`
	Counter  int64     `gorm:"not null;column:counter" json:"counter"`

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Sequence) TableName() string { return "document_sequence" }

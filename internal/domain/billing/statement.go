package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatementImported    = "imported"
	StatementReconciling = "reconciling"
	StatementReconciled  = "reconciled"
)

type BankStatement struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_statement_tenant_fingerprint,priority:1" json:"tenant_id"`

	Filename         string    `gorm:"not null;column:filename" json:"filename"`
	Fingerprint      string    `gorm:"not null;column:fingerprint;uniqueIndex:idx_statement_tenant_fingerprint,priority:2" json:"fingerprint"`
	ArchiveKey       string    `gorm:"column:archive_key" json:"archive_key,omitempty"`
	Status           string    `gorm:"not null;column:status;index" json:"status"`
	TransactionCount int       `gorm:"not null;column:transaction_count" json:"transaction_count"`
	ImportedAt       time.Time `gorm:"not null;column:imported_at" json:"imported_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (BankStatement) TableName() string { return "bank_statement" }

func (s *BankStatement) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type BankTransaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index:idx_bank_tx_tenant_matched,priority:1" json:"tenant_id"`
	StatementID uuid.UUID `gorm:"type:uuid;not null;index" json:"statement_id"`
	Line        int       `gorm:"not null;column:line" json:"line"`

	BookedAt     time.Time `gorm:"not null;column:booked_at" json:"booked_at"`
	Amount       int64     `gorm:"not null;column:amount" json:"amount"`
	Currency     string    `gorm:"not null;size:3;column:currency" json:"currency"`
	Description  string    `gorm:"column:description" json:"description"`
	Counterparty string    `gorm:"column:counterparty" json:"counterparty"`
	Reference    string    `gorm:"column:reference" json:"reference"`

	Raw     datatypes.JSON `gorm:"column:raw" json:"raw,omitempty"`
	Matched bool           `gorm:"not null;column:matched;index:idx_bank_tx_tenant_matched,priority:2" json:"matched"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (BankTransaction) TableName() string { return "bank_transaction" }

func (t *BankTransaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

const (
	MatchSuggested = "suggested"
	MatchConfirmed = "confirmed"
	MatchRejected  = "rejected"
)

type ReconciliationMatch struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          uuid.UUID `gorm:"type:uuid;not null;index:idx_match_tenant_status,priority:1" json:"tenant_id"`
	PaymentID         uuid.UUID `gorm:"type:uuid;not null;index" json:"payment_id"`
	BankTransactionID uuid.UUID `gorm:"type:uuid;not null;index" json:"bank_transaction_id"`

	Score   int            `gorm:"not null;column:score" json:"score"`
	Status  string         `gorm:"not null;column:status;index:idx_match_tenant_status,priority:2" json:"status"`
	Reasons datatypes.JSON `gorm:"column:reasons" json:"reasons"`

	DecidedAt *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ReconciliationMatch) TableName() string { return "reconciliation_match" }

func (m *ReconciliationMatch) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

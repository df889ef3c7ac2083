package reconcilerun

import (
	"github.com/google/uuid"
)

const (
	WorkflowName      = "statement_reconcile"
	ActivityReconcile = "statement_reconcile_run"

	// ErrTypeInvalidInput marks failures that retrying cannot fix.
	ErrTypeInvalidInput = "invalid_input"
)

type Input struct {
	TenantID string `json:"tenant_id"`
	// Empty means every unreconciled transaction of the tenant.
	StatementID string `json:"statement_id,omitempty"`
}

type Result struct {
	Suggested int `json:"suggested"`
	Confirmed int `json:"confirmed"`
}

// WorkflowID is stable per tenant and statement so a repeated run request
// attaches to the one already in flight.
func WorkflowID(tenantID uuid.UUID, statementID *uuid.UUID) string {
	scope := "all"
	if statementID != nil {
		scope = statementID.String()
	}
	return "reconcile-" + tenantID.String() + "-" + scope
}

func NewInput(tenantID uuid.UUID, statementID *uuid.UUID) Input {
	in := Input{TenantID: tenantID.String()}
	if statementID != nil {
		in.StatementID = statementID.String()
	}
	return in
}

package reconcilerun

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var retryPolicy = &temporal.RetryPolicy{
	InitialInterval:        2 * time.Second,
	BackoffCoefficient:     2,
	MaximumInterval:        time.Minute,
	MaximumAttempts:        5,
	NonRetryableErrorTypes: []string{ErrTypeInvalidInput},
}

// Workflow runs one matching pass for a tenant. The pass itself is a single
// activity; matching is idempotent, so a retried attempt only picks up what
// the failed one left behind.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         retryPolicy,
	})

	log := workflow.GetLogger(ctx)
	log.Info("reconcile workflow started", "tenant_id", in.TenantID, "statement_id", in.StatementID)

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityReconcile, in).Get(ctx, &out); err != nil {
		return Result{}, err
	}
	log.Info("reconcile workflow finished", "suggested", out.Suggested, "confirmed", out.Confirmed)
	return out, nil
}

package reconcilerun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
)

// Dispatcher starts reconcile workflows on a task queue.
type Dispatcher struct {
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewDispatcher(tc temporalsdkclient.Client, taskQueue string) *Dispatcher {
	return &Dispatcher{tc: tc, taskQueue: taskQueue}
}

func (d *Dispatcher) StartReconcile(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (string, error) {
	if d == nil || d.tc == nil {
		return "", fmt.Errorf("temporal client is not configured")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(tenantID, statementID),
		TaskQueue:                d.taskQueue,
		WorkflowExecutionTimeout: time.Hour,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}
	run, err := d.tc.ExecuteWorkflow(ctx, opts, WorkflowName, NewInput(tenantID, statementID))
	if err != nil {
		return "", fmt.Errorf("start reconcile workflow: %w", err)
	}
	return run.GetID(), nil
}

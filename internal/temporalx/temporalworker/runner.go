package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/temporalx"
	"github.com/yungbote/deskbase-backend/internal/temporalx/reconcilerun"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc         temporalsdkclient.Client
	reconciler reconcilerun.Reconciler
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, reconciler reconcilerun.Reconciler) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{log: log, cfg: cfg, tc: tc, reconciler: reconciler}, nil
}

// Start polls the task queue until ctx is cancelled. It retries worker start
// for a while so the process survives a Temporal frontend that boots later.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	if cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	var stop func()
	err := temporalx.Retry(ctx, cfg.ConnectMaxWait, cfg.Backoff, func(attempt int) error {
		w := r.newWorker()
		if err := w.Start(); err != nil {
			w.Stop()
			var nfe *serviceerror.NamespaceNotFound
			if errors.As(err, &nfe) && cfg.AutoRegisterNamespace {
				_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
			}
			r.log.Warn("Temporal worker failed to start", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", err)
			return err
		}
		stop = w.Stop
		return nil
	}, nil)
	if err != nil {
		return fmt.Errorf("start temporal worker (namespace=%s): %w", cfg.Namespace, err)
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := max(r.cfg.WorkerConcurrency, 1)
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &reconcilerun.Activities{Log: r.log, Reconciler: r.reconciler}
	w.RegisterWorkflowWithOptions(reconcilerun.Workflow, workflow.RegisterOptions{Name: reconcilerun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Reconcile, activity.RegisterOptions{Name: reconcilerun.ActivityReconcile})
	return w
}

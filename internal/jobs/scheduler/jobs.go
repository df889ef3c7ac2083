package scheduler

import (
	"context"
	"time"
)

// Default schedules.
const (
	SpecExpireHolds      = "@every 1m"
	SpecExpireQuotations = "5 * * * *"
	SpecMarkOverdue      = "15 * * * *"
	SpecReconcile        = "30 2 * * *"

	reconcileBatch = 50
)

type HoldExpirer interface {
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
}

type QuotationExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type OverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type PendingReconciler interface {
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

type Deps struct {
	Holds      HoldExpirer
	Quotations QuotationExpirer
	Invoices   OverdueMarker
	Reconcile  PendingReconciler
	Now        func() time.Time
}

// RegisterDefaults adds the back office housekeeping jobs for every non-nil dep.
func RegisterDefaults(s *Scheduler, d Deps) error {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	var jobs []Job
	if d.Holds != nil {
		jobs = append(jobs, Job{Name: "expire_holds", Spec: SpecExpireHolds, Timeout: time.Minute, Run: func(ctx context.Context) error {
			_, err := d.Holds.ExpireHolds(ctx, now())
			return err
		}})
	}
	if d.Quotations != nil {
		jobs = append(jobs, Job{Name: "expire_quotations", Spec: SpecExpireQuotations, Run: func(ctx context.Context) error {
			_, err := d.Quotations.ExpireDue(ctx, now())
			return err
		}})
	}
	if d.Invoices != nil {
		jobs = append(jobs, Job{Name: "mark_overdue_invoices", Spec: SpecMarkOverdue, Run: func(ctx context.Context) error {
			_, err := d.Invoices.MarkOverdue(ctx, now())
			return err
		}})
	}
	if d.Reconcile != nil {
		jobs = append(jobs, Job{Name: "reconcile_pending", Spec: SpecReconcile, Timeout: 30 * time.Minute, Run: func(ctx context.Context) error {
			_, err := d.Reconcile.ReconcilePending(ctx, reconcileBatch)
			return err
		}})
	}
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			return err
		}
	}
	return nil
}

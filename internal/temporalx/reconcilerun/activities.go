package reconcilerun

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/services"
)

type Reconciler interface {
	Reconcile(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*services.RunResult, error)
}

type Activities struct {
	Log        *logger.Logger
	Reconciler Reconciler
}

func (a *Activities) Reconcile(ctx context.Context, in Input) (Result, error) {
	tenantID, err := uuid.Parse(in.TenantID)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError("invalid tenant id", ErrTypeInvalidInput, err)
	}
	var statementID *uuid.UUID
	if in.StatementID != "" {
		id, err := uuid.Parse(in.StatementID)
		if err != nil {
			return Result{}, temporal.NewNonRetryableApplicationError("invalid statement id", ErrTypeInvalidInput, err)
		}
		statementID = &id
	}

	res, err := a.Reconciler.Reconcile(ctx, tenantID, statementID)
	if err != nil {
		// 4xx errors describe the request, not the environment.
		if ae, ok := apierr.As(err); ok && ae.Status >= http.StatusBadRequest && ae.Status < http.StatusInternalServerError {
			return Result{}, temporal.NewNonRetryableApplicationError(ae.Error(), ErrTypeInvalidInput, err, ae.Code)
		}
		if a.Log != nil {
			a.Log.Warn("reconcile activity failed", "tenant_id", in.TenantID, "statement_id", in.StatementID, "error", err)
		}
		return Result{}, err
	}
	return Result{Suggested: res.Suggested, Confirmed: res.Confirmed}, nil
}

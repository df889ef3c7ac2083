package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	temporalsdkclient "go.temporal.io/sdk/client"

	apphttp "github.com/yungbote/deskbase-backend/internal/http"
	httpH "github.com/yungbote/deskbase-backend/internal/http/handlers"
	httpMW "github.com/yungbote/deskbase-backend/internal/http/middleware"
)

func (a *App) healthChecks() map[string]httpH.Pinger {
	checks := map[string]httpH.Pinger{
		"database": httpH.PingFunc(func(ctx context.Context) error {
			sqlDB, err := a.DB.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if a.Redis != nil {
		checks["redis"] = httpH.PingFunc(func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		})
	}
	if a.Temporal != nil {
		checks["temporal"] = httpH.PingFunc(func(ctx context.Context) error {
			if _, err := a.Temporal.CheckHealth(ctx, &temporalsdkclient.CheckHealthRequest{}); err != nil {
				return fmt.Errorf("temporal health: %w", err)
			}
			return nil
		})
	}
	return checks
}

func (a *App) routerConfig() apphttp.RouterConfig {
	s := a.Services
	cfg := a.Cfg
	var limiter *httpMW.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpMW.NewRateLimiter(a.Log, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.OtelServiceName
	}
	return apphttp.RouterConfig{
		Log:            a.Log,
		Metrics:        a.Metrics,
		ServiceName:    serviceName,
		CORSOrigins:    cfg.CORSOrigins,
		AuthMiddleware: httpMW.NewAuthMiddleware(a.Log, cfg.JWTSecretKey, cfg.JWTIssuer),
		RateLimiter:    limiter,

		TenantHandler:         httpH.NewTenantHandler(s.Tenant),
		LeadHandler:           httpH.NewLeadHandler(s.Lead),
		OpportunityHandler:    httpH.NewOpportunityHandler(s.Opportunity),
		QuotationHandler:      httpH.NewQuotationHandler(s.Quotation),
		SpaceHandler:          httpH.NewSpaceHandler(s.Space, s.PricingRule, s.Booking),
		PricingRuleHandler:    httpH.NewPricingRuleHandler(s.PricingRule),
		BookingHandler:        httpH.NewBookingHandler(s.Booking),
		BillingHandler:        httpH.NewBillingHandler(s.Billing),
		ReconciliationHandler: httpH.NewReconciliationHandler(s.Reconciliation),
		RealtimeHandler:       httpH.NewRealtimeHandler(a.Log, a.Hub),
		HealthHandler:         httpH.NewHealthHandler(a.healthChecks()),
	}
}

// Router builds the HTTP engine for the wired services.
func (a *App) Router() *gin.Engine {
	return apphttp.NewRouter(a.routerConfig())
}

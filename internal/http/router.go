package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/deskbase-backend/internal/http/handlers"
	httpMW "github.com/yungbote/deskbase-backend/internal/http/middleware"
	"github.com/yungbote/deskbase-backend/internal/observability"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware
	RateLimiter    *httpMW.RateLimiter

	TenantHandler         *httpH.TenantHandler
	LeadHandler           *httpH.LeadHandler
	OpportunityHandler    *httpH.OpportunityHandler
	QuotationHandler      *httpH.QuotationHandler
	SpaceHandler          *httpH.SpaceHandler
	PricingRuleHandler    *httpH.PricingRuleHandler
	BookingHandler        *httpH.BookingHandler
	BillingHandler        *httpH.BillingHandler
	ReconciliationHandler *httpH.ReconciliationHandler
	RealtimeHandler       *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireTenant())
	}
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}
	{
		if cfg.TenantHandler != nil {
			api.GET("/tenant", cfg.TenantHandler.GetTenant)
			api.PATCH("/tenant", cfg.TenantHandler.UpdateSettings)
		}

		// CRM
		if cfg.LeadHandler != nil {
			api.POST("/leads", cfg.LeadHandler.CreateLead)
			api.GET("/leads", cfg.LeadHandler.ListLeads)
			api.GET("/leads/:id", cfg.LeadHandler.GetLead)
			api.PATCH("/leads/:id", cfg.LeadHandler.UpdateLead)
			api.POST("/leads/:id/status", cfg.LeadHandler.ChangeStatus)
			api.POST("/leads/:id/convert", cfg.LeadHandler.ConvertLead)
			api.DELETE("/leads/:id", cfg.LeadHandler.DeleteLead)
		}
		if cfg.OpportunityHandler != nil {
			api.POST("/opportunities", cfg.OpportunityHandler.CreateOpportunity)
			api.GET("/opportunities", cfg.OpportunityHandler.ListOpportunities)
			api.GET("/opportunities/:id", cfg.OpportunityHandler.GetOpportunity)
			api.PATCH("/opportunities/:id", cfg.OpportunityHandler.UpdateOpportunity)
			api.POST("/opportunities/:id/stage", cfg.OpportunityHandler.MoveStage)
		}
		if cfg.QuotationHandler != nil {
			api.POST("/quotations", cfg.QuotationHandler.CreateQuotation)
			api.GET("/quotations", cfg.QuotationHandler.ListQuotations)
			api.GET("/quotations/:id", cfg.QuotationHandler.GetQuotation)
			api.POST("/quotations/:id/send", cfg.QuotationHandler.SendQuotation)
			api.POST("/quotations/:id/accept", cfg.QuotationHandler.AcceptQuotation)
			api.POST("/quotations/:id/reject", cfg.QuotationHandler.RejectQuotation)
		}

		// Spaces and bookings
		if cfg.SpaceHandler != nil {
			api.POST("/spaces", cfg.SpaceHandler.CreateSpace)
			api.GET("/spaces", cfg.SpaceHandler.ListSpaces)
			api.GET("/spaces/:id", cfg.SpaceHandler.GetSpace)
			api.PATCH("/spaces/:id", cfg.SpaceHandler.UpdateSpace)
			api.DELETE("/spaces/:id", cfg.SpaceHandler.DeactivateSpace)
			api.GET("/spaces/:id/slots", cfg.SpaceHandler.FreeSlots)
			api.GET("/spaces/:id/pricing-rules", cfg.SpaceHandler.ListRules)
			api.PUT("/spaces/:id/pricing-rules", cfg.SpaceHandler.ImportRules)
		}
		if cfg.PricingRuleHandler != nil {
			api.GET("/pricing-rules", cfg.PricingRuleHandler.ListRules)
			api.POST("/pricing-rules", cfg.PricingRuleHandler.CreateRule)
			api.PUT("/pricing-rules/:id", cfg.PricingRuleHandler.UpdateRule)
			api.DELETE("/pricing-rules/:id", cfg.PricingRuleHandler.DeleteRule)
		}
		if cfg.BookingHandler != nil {
			api.POST("/bookings/availability", cfg.BookingHandler.CheckAvailability)
			api.POST("/bookings/quote", cfg.BookingHandler.Quote)
			api.POST("/bookings", cfg.BookingHandler.CreateBooking)
			api.GET("/bookings", cfg.BookingHandler.ListBookings)
			api.GET("/bookings/:id", cfg.BookingHandler.GetBooking)
			api.POST("/bookings/:id/confirm", cfg.BookingHandler.ConfirmBooking)
			api.POST("/bookings/:id/cancel", cfg.BookingHandler.CancelBooking)
		}

		// Billing
		if cfg.BillingHandler != nil {
			api.POST("/bookings/:id/invoice", cfg.BillingHandler.IssueForBooking)
			api.GET("/invoices", cfg.BillingHandler.ListInvoices)
			api.GET("/invoices/:id", cfg.BillingHandler.GetInvoice)
			api.POST("/invoices/:id/void", cfg.BillingHandler.VoidInvoice)
			api.POST("/payments", cfg.BillingHandler.RecordPayment)
			api.GET("/payments", cfg.BillingHandler.ListPayments)
		}
		if cfg.ReconciliationHandler != nil {
			api.POST("/statements", cfg.ReconciliationHandler.ImportStatement)
			api.GET("/statements", cfg.ReconciliationHandler.ListStatements)
			api.GET("/statements/:id", cfg.ReconciliationHandler.GetStatement)
			api.POST("/reconciliation/run", cfg.ReconciliationHandler.Run)
			api.GET("/reconciliation/matches", cfg.ReconciliationHandler.ListMatches)
			api.POST("/reconciliation/matches/:id/confirm", cfg.ReconciliationHandler.ConfirmMatch)
			api.POST("/reconciliation/matches/:id/reject", cfg.ReconciliationHandler.RejectMatch)
			api.GET("/reconciliation/unmatched", cfg.ReconciliationHandler.Unmatched)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}

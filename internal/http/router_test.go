package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/data/repos/testutil"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	httpH "github.com/yungbote/deskbase-backend/internal/http/handlers"
	httpMW "github.com/yungbote/deskbase-backend/internal/http/middleware"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
	"github.com/yungbote/deskbase-backend/internal/services"
)

const routerSecret = "router-secret"

type apiFixture struct {
	engine *gin.Engine
	tenant *types.Tenant
	space  *types.Space
	token  string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	tenant := testutil.SeedTenant(t, ctx, gdb)
	space := testutil.SeedSpace(t, ctx, gdb, tenant.ID)

	tenants := repos.NewTenantRepo(gdb, log)
	spaceRepo := repos.NewSpaceRepo(gdb, log)
	bookingRepo := repos.NewBookingRepo(gdb, log)
	ruleRepo := repos.NewPricingRuleRepo(gdb, log)
	invoiceRepo := repos.NewInvoiceRepo(gdb, log)
	paymentRepo := repos.NewPaymentRepo(gdb, log)
	leadRepo := repos.NewLeadRepo(gdb, log)
	oppRepo := repos.NewOpportunityRepo(gdb, log)
	numbers := services.NewNumberer(repos.NewSequenceRepo(gdb, log))
	eventBus := bus.NewLocalBus()

	bookings := services.NewBookingService(
		gdb,
		log,
		tenants,
		spaceRepo,
		bookingRepo,
		ruleRepo,
		invoiceRepo,
		numbers,
		nil,
		nil,
		eventBus,
		nil,
		services.DefaultHoldTTL,
	)
	billing := services.NewBillingService(gdb, log, tenants, bookingRepo, invoiceRepo, paymentRepo, numbers, eventBus)

	engine := NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, routerSecret, ""),
		RateLimiter:    httpMW.NewRateLimiter(log, 100, 100),
		TenantHandler:  httpH.NewTenantHandler(services.NewTenantService(gdb, log, tenants)),
		LeadHandler:    httpH.NewLeadHandler(services.NewLeadService(gdb, log, leadRepo, oppRepo)),
		BookingHandler: httpH.NewBookingHandler(bookings),
		BillingHandler: httpH.NewBillingHandler(billing),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})

	tok, err := httpMW.IssueToken(routerSecret, "", tenant.ID, uuid.New(), "admin", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return &apiFixture{engine: engine, tenant: tenant, space: space, token: tok}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, rec, &env)
	return env.Error.Code
}

func TestHealthAndAuth(t *testing.T) {
	f := newAPIFixture(t)
	if rec := f.do(t, http.MethodGet, "/healthcheck", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/api/tenant", "", nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "unauthorized" {
		t.Fatalf("missing token: %d %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, "/api/tenant", f.token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tenant: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 7).Add(10 * time.Hour)
	body := map[string]any{
		"space_id":    f.space.ID,
		"member_name": "Ada",
		"attendees":   2,
		"start_at":    start,
		"end_at":      start.Add(2 * time.Hour),
		"confirm":     true,
	}

	rec := f.do(t, http.MethodPost, "/api/bookings", f.token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Booking types.Booking `json:"booking"`
	}
	decode(t, rec, &created)
	if created.Booking.Status != types.BookingStatusConfirmed || created.Booking.TotalAmount != 9600 {
		t.Fatalf("unexpected booking: %+v", created.Booking)
	}

	rec = f.do(t, http.MethodPost, "/api/bookings", f.token, body)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "booking_conflict" {
		t.Fatalf("double booking: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/invoices?booking_id="+created.Booking.ID.String(), f.token, nil)
	var invoices struct {
		Items []types.Invoice `json:"items"`
		Total int64           `json:"total"`
	}
	decode(t, rec, &invoices)
	if rec.Code != http.StatusOK || invoices.Total != 1 || invoices.Items[0].Amount != 9600 {
		t.Fatalf("invoices: %d %s", rec.Code, rec.Body.String())
	}

	other, err := httpMW.IssueToken(routerSecret, "", uuid.New(), uuid.New(), "admin", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	rec = f.do(t, http.MethodGet, "/api/bookings/"+created.Booking.ID.String(), other, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant read: %d", rec.Code)
	}
}

func TestHandlerErrors(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/leads/not-a-uuid", f.token, nil)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_lead_id" {
		t.Fatalf("bad id: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/leads", f.token, map[string]any{"name": "Linus", "email": "linus@example.com"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create lead: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Lead types.Lead `json:"lead"`
	}
	decode(t, rec, &created)

	rec = f.do(t, http.MethodPost, "/api/leads/"+created.Lead.ID.String()+"/convert", f.token, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "lead_not_qualified" {
		t.Fatalf("convert new lead: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/bookings", f.token, "not an object")
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_request" {
		t.Fatalf("malformed body: %d %s", rec.Code, rec.Body.String())
	}
}

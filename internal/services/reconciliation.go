package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/deskbase-backend/internal/billing/reconcile"
	"github.com/yungbote/deskbase-backend/internal/billing/statement"
	"github.com/yungbote/deskbase-backend/internal/data/db"
	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/observability"
	"github.com/yungbote/deskbase-backend/internal/platform/apierr"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/platform/gcp"
	"github.com/yungbote/deskbase-backend/internal/platform/logger"
	"github.com/yungbote/deskbase-backend/internal/realtime"
	"github.com/yungbote/deskbase-backend/internal/realtime/bus"
)

// ReconcileDispatcher hands a reconciliation run to a background worker and
// returns its run id.
type ReconcileDispatcher interface {
	StartReconcile(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (string, error)
}

type RunResult struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Async      bool   `json:"async"`
	Suggested  int    `json:"suggested"`
	Confirmed  int    `json:"confirmed"`
}

type Unmatched struct {
	Payments     []*types.Payment         `json:"payments"`
	Transactions []*types.BankTransaction `json:"transactions"`
}

type ReconciliationService interface {
	ImportStatement(ctx context.Context, filename string, data []byte) (*types.BankStatement, error)
	GetStatement(ctx context.Context, id uuid.UUID) (*types.BankStatement, error)
	ListStatements(ctx context.Context, page Page) ([]*types.BankStatement, error)
	// Run reconciles the tenant's open items, narrowed to one statement when
	// statementID is set. It is dispatched to the worker when one is configured.
	Run(ctx context.Context, statementID *uuid.UUID) (*RunResult, error)
	// Reconcile performs a run synchronously for tenantID.
	Reconcile(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*RunResult, error)
	ConfirmMatch(ctx context.Context, id uuid.UUID) (*types.ReconciliationMatch, error)
	RejectMatch(ctx context.Context, id uuid.UUID) (*types.ReconciliationMatch, error)
	ListMatches(ctx context.Context, f repos.MatchFilter) ([]*types.ReconciliationMatch, int64, error)
	Unmatched(ctx context.Context) (*Unmatched, error)
	// ReconcilePending runs every imported statement not reconciled yet.
	ReconcilePending(ctx context.Context, limit int) (int, error)
}

type reconciliationService struct {
	db         *gorm.DB
	log        *logger.Logger
	tenants    repos.TenantRepo
	statements repos.BankStatementRepo
	txs        repos.BankTransactionRepo
	payments   repos.PaymentRepo
	invoices   repos.InvoiceRepo
	matches    repos.ReconciliationMatchRepo
	archive    gcp.ArchiveStore
	dispatcher ReconcileDispatcher
	matcher    reconcile.Config
	events     eventPublisher
	metrics    *observability.Metrics
	clock      clock
}

func NewReconciliationService(
	db *gorm.DB,
	log *logger.Logger,
	tenants repos.TenantRepo,
	statements repos.BankStatementRepo,
	txs repos.BankTransactionRepo,
	payments repos.PaymentRepo,
	invoices repos.InvoiceRepo,
	matches repos.ReconciliationMatchRepo,
	archive gcp.ArchiveStore,
	dispatcher ReconcileDispatcher,
	matcher reconcile.Config,
	eventBus bus.Bus,
	metrics *observability.Metrics,
) ReconciliationService {
	serviceLog := log.With("service", "ReconciliationService")
	return &reconciliationService{
		db:         db,
		log:        serviceLog,
		tenants:    tenants,
		statements: statements,
		txs:        txs,
		payments:   payments,
		invoices:   invoices,
		matches:    matches,
		archive:    archive,
		dispatcher: dispatcher,
		matcher:    matcher,
		events:     eventPublisher{bus: eventBus, log: serviceLog},
		metrics:    metrics,
	}
}

func (s *reconciliationService) ImportStatement(ctx context.Context, filename string, data []byte) (*types.BankStatement, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apierr.Invalid("empty_statement", "statement file is empty")
	}
	dbc := dbctx.Context{Ctx: ctx}
	t, err := loadTenant(dbc, s.tenants, tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := statement.Parse(data, t.Currency)
	if err != nil {
		return nil, apierr.Invalid("invalid_statement", "%v", err)
	}
	fp := statement.Fingerprint(data)
	if existing, err := s.statements.GetByFingerprint(dbc, tenantID, fp); err != nil {
		return nil, fmt.Errorf("check statement: %w", err)
	} else if existing != nil {
		return nil, apierr.Conflict("statement_already_imported", "statement was already imported as %s", existing.ID)
	}

	now := s.clock.now()
	st := &types.BankStatement{
		ID:               uuid.New(),
		TenantID:         tenantID,
		Filename:         strings.TrimSpace(filename),
		Fingerprint:      fp,
		Status:           types.StatementStatusImported,
		TransactionCount: len(rows),
		ImportedAt:       now,
	}
	if st.Filename == "" {
		st.Filename = "statement.csv"
	}
	txs := make([]*types.BankTransaction, 0, len(rows))
	for _, r := range rows {
		raw, err := json.Marshal(r.Raw)
		if err != nil {
			return nil, fmt.Errorf("encode statement line %d: %w", r.Line, err)
		}
		txs = append(txs, &types.BankTransaction{
			TenantID:     tenantID,
			StatementID:  st.ID,
			Line:         r.Line,
			BookedAt:     r.BookedAt,
			Amount:       r.Amount,
			Currency:     r.Currency,
			Description:  r.Description,
			Counterparty: r.Counterparty,
			Reference:    r.Reference,
			Raw:          datatypes.JSON(raw),
		})
	}
	err = inTx(s.db, dbc, func(dbc dbctx.Context) error {
		if _, err := s.statements.Create(dbc, st); err != nil {
			if db.IsDuplicate(err) {
				return apierr.Conflict("statement_already_imported", "statement was already imported")
			}
			return fmt.Errorf("create statement: %w", err)
		}
		if err := s.txs.CreateBatch(dbc, txs); err != nil {
			return fmt.Errorf("create bank transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.archiveStatement(ctx, st, data)
	s.log.Info("Statement imported", "statement_id", st.ID, "tenant_id", tenantID, "lines", len(rows))
	return st, nil
}

// archiveStatement stores the raw file once the import committed. A failed
// upload leaves the statement without an archive key.
func (s *reconciliationService) archiveStatement(ctx context.Context, st *types.BankStatement, data []byte) {
	if s.archive == nil {
		return
	}
	log := s.log.WithContext(ctx)
	key := gcp.StatementKey(st.TenantID.String(), st.ID.String(), st.Filename)
	if err := s.archive.Put(ctx, key, "", bytes.NewReader(data)); err != nil {
		log.Warn("Statement archive failed", "statement_id", st.ID, "error", err)
		return
	}
	if err := s.statements.UpdateFields(dbctx.Context{Ctx: ctx}, st.TenantID, st.ID, map[string]interface{}{
		"archive_key": key,
	}); err != nil {
		log.Warn("Statement archive key not saved", "statement_id", st.ID, "key", key, "error", err)
		return
	}
	st.ArchiveKey = key
}

func (s *reconciliationService) GetStatement(ctx context.Context, id uuid.UUID) (*types.BankStatement, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.statements.GetByID(dbctx.Context{Ctx: ctx}, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("load statement: %w", err)
	}
	if st == nil {
		return nil, apierr.NotFound("statement_not_found", "statement %s not found", id)
	}
	return st, nil
}

func (s *reconciliationService) ListStatements(ctx context.Context, page Page) ([]*types.BankStatement, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	page = normalizePage(page.Limit, page.Offset)
	return s.statements.List(dbctx.Context{Ctx: ctx}, tenantID, page.Limit, page.Offset)
}

func (s *reconciliationService) Run(ctx context.Context, statementID *uuid.UUID) (*RunResult, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if statementID != nil {
		st, err := s.statements.GetByID(dbctx.Context{Ctx: ctx}, tenantID, *statementID)
		if err != nil {
			return nil, fmt.Errorf("load statement: %w", err)
		}
		if st == nil {
			return nil, apierr.NotFound("statement_not_found", "statement %s not found", *statementID)
		}
	}
	if s.dispatcher == nil {
		return s.Reconcile(ctx, tenantID, statementID)
	}
	if statementID != nil {
		if err := s.statements.UpdateFields(dbctx.Context{Ctx: ctx}, tenantID, *statementID, map[string]interface{}{
			"status":     types.StatementStatusReconciling,
			"updated_at": s.clock.now(),
		}); err != nil {
			return nil, fmt.Errorf("mark statement reconciling: %w", err)
		}
	}
	runID, err := s.dispatcher.StartReconcile(ctx, tenantID, statementID)
	if err != nil {
		return nil, fmt.Errorf("dispatch reconciliation: %w", err)
	}
	return &RunResult{WorkflowID: runID, Async: true}, nil
}

type reconcileInputs struct {
	payments    []*types.Payment
	txs         []*types.BankTransaction
	pendingPay  []uuid.UUID
	pendingTx   []uuid.UUID
	rejected    []*types.ReconciliationMatch
	invoiceNums map[uuid.UUID]string
}

func (s *reconciliationService) loadInputs(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*reconcileInputs, error) {
	in := &reconcileInputs{invoiceNums: map[uuid.UUID]string{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payments, err := s.payments.ListUnreconciled(dbctx.Context{Ctx: gctx}, tenantID)
		if err != nil {
			return fmt.Errorf("load payments: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(payments))
		for _, p := range payments {
			if p.InvoiceID != nil {
				ids = append(ids, *p.InvoiceID)
			}
		}
		if len(ids) > 0 {
			invs, err := s.invoices.GetByIDs(dbctx.Context{Ctx: gctx}, tenantID, ids)
			if err != nil {
				return fmt.Errorf("load invoices: %w", err)
			}
			for _, inv := range invs {
				in.invoiceNums[inv.ID] = inv.Number
			}
		}
		in.payments = payments
		return nil
	})
	g.Go(func() error {
		txs, err := s.txs.ListUnmatched(dbctx.Context{Ctx: gctx}, tenantID, statementID)
		if err != nil {
			return fmt.Errorf("load bank transactions: %w", err)
		}
		in.txs = txs
		return nil
	})
	g.Go(func() error {
		p, t, err := s.matches.PendingPairs(dbctx.Context{Ctx: gctx}, tenantID)
		if err != nil {
			return fmt.Errorf("load pending matches: %w", err)
		}
		in.pendingPay, in.pendingTx = p, t
		return nil
	})
	g.Go(func() error {
		rejected, _, err := s.matches.List(dbctx.Context{Ctx: gctx}, tenantID, repos.MatchFilter{Status: types.MatchStatusRejected})
		if err != nil {
			return fmt.Errorf("load rejected matches: %w", err)
		}
		in.rejected = rejected
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *reconciliationService) Reconcile(ctx context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (*RunResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "reconcile.run")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID.String()))

	in, err := s.loadInputs(ctx, tenantID, statementID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	busyPay := make(map[uuid.UUID]bool, len(in.pendingPay))
	for _, id := range in.pendingPay {
		busyPay[id] = true
	}
	busyTx := make(map[uuid.UUID]bool, len(in.pendingTx))
	for _, id := range in.pendingTx {
		busyTx[id] = true
	}
	rejected := make([]reconcile.Pair, 0, len(in.rejected))
	for _, m := range in.rejected {
		rejected = append(rejected, reconcile.Pair{PaymentID: m.PaymentID, TransactionID: m.BankTransactionID})
	}

	payments := make([]reconcile.Payment, 0, len(in.payments))
	for _, p := range in.payments {
		if busyPay[p.ID] {
			continue
		}
		rp := reconcile.Payment{
			ID:         p.ID,
			Amount:     p.Amount,
			Currency:   p.Currency,
			ReceivedAt: p.ReceivedAt,
			Reference:  p.Reference,
			PayerName:  p.PayerName,
		}
		if p.InvoiceID != nil {
			rp.InvoiceNumber = in.invoiceNums[*p.InvoiceID]
		}
		payments = append(payments, rp)
	}
	txs := make([]reconcile.Transaction, 0, len(in.txs))
	for _, t := range in.txs {
		if busyTx[t.ID] {
			continue
		}
		txs = append(txs, reconcile.Transaction{
			ID:           t.ID,
			Amount:       t.Amount,
			Currency:     t.Currency,
			BookedAt:     t.BookedAt,
			Description:  t.Description,
			Counterparty: t.Counterparty,
			Reference:    t.Reference,
		})
	}

	found := s.matcher.Match(payments, txs, rejected...)
	now := s.clock.now()
	res := &RunResult{}
	rows := make([]*types.ReconciliationMatch, 0, len(found))
	for _, m := range found {
		reasons, err := json.Marshal(m.Reasons)
		if err != nil {
			return nil, fmt.Errorf("encode match reasons: %w", err)
		}
		row := &types.ReconciliationMatch{
			TenantID:          tenantID,
			PaymentID:         m.PaymentID,
			BankTransactionID: m.TransactionID,
			Score:             m.Score,
			Status:            types.MatchStatusSuggested,
			Reasons:           datatypes.JSON(reasons),
		}
		if m.AutoConfirm {
			row.Status = types.MatchStatusConfirmed
			row.DecidedAt = timePtr(now)
			res.Confirmed++
		} else {
			res.Suggested++
		}
		rows = append(rows, row)
	}

	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		if err := s.matches.CreateBatch(dbc, rows); err != nil {
			if db.IsDuplicate(err) {
				return apierr.Conflict("reconcile_in_progress", "another reconciliation run stored these matches first")
			}
			return fmt.Errorf("store matches: %w", err)
		}
		for _, row := range rows {
			if row.Status != types.MatchStatusConfirmed {
				continue
			}
			if err := s.settle(dbc, tenantID, row.PaymentID, row.BankTransactionID, now); err != nil {
				return err
			}
		}
		if statementID != nil {
			if err := s.statements.UpdateFields(dbc, tenantID, *statementID, map[string]interface{}{
				"status":     types.StatementStatusReconciled,
				"updated_at": now,
			}); err != nil {
				return fmt.Errorf("mark statement reconciled: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.AddReconcileMatches(types.MatchStatusSuggested, res.Suggested)
	s.metrics.AddReconcileMatches(types.MatchStatusConfirmed, res.Confirmed)
	span.SetAttributes(
		attribute.Int("reconcile.suggested", res.Suggested),
		attribute.Int("reconcile.confirmed", res.Confirmed),
	)
	s.log.Info("Reconciliation finished",
		"tenant_id", tenantID,
		"payments", len(payments),
		"transactions", len(txs),
		"suggested", res.Suggested,
		"confirmed", res.Confirmed,
	)
	s.events.publish(ctx, tenantID, realtime.SSEEventReconcileDone, res)
	return res, nil
}

// settle marks both sides of a confirmed match.
func (s *reconciliationService) settle(dbc dbctx.Context, tenantID, paymentID, txID uuid.UUID, now time.Time) error {
	if err := s.payments.UpdateFields(dbc, tenantID, paymentID, map[string]interface{}{
		"reconciled":          true,
		"bank_transaction_id": txID,
		"updated_at":          now,
	}); err != nil {
		return fmt.Errorf("reconcile payment: %w", err)
	}
	if err := s.txs.UpdateFields(dbc, tenantID, txID, map[string]interface{}{
		"matched":    true,
		"updated_at": now,
	}); err != nil {
		return fmt.Errorf("match bank transaction: %w", err)
	}
	return nil
}

func (s *reconciliationService) decide(ctx context.Context, id uuid.UUID, status string) (*types.ReconciliationMatch, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.ReconciliationMatch
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(dbc dbctx.Context) error {
		m, err := s.matches.GetForUpdate(dbc, tenantID, id)
		if err != nil {
			return fmt.Errorf("load match: %w", err)
		}
		if m == nil {
			return apierr.NotFound("match_not_found", "match %s not found", id)
		}
		if m.Status != types.MatchStatusSuggested {
			return apierr.Conflict("match_decided", "match is already %s", m.Status)
		}
		now := s.clock.now()
		if status == types.MatchStatusConfirmed {
			p, err := s.payments.GetByID(dbc, tenantID, m.PaymentID)
			if err != nil {
				return fmt.Errorf("load payment: %w", err)
			}
			t, err := s.txs.GetByID(dbc, tenantID, m.BankTransactionID)
			if err != nil {
				return fmt.Errorf("load bank transaction: %w", err)
			}
			if p == nil || t == nil {
				return apierr.NotFound("match_side_missing", "payment or bank transaction of match %s no longer exists", id)
			}
			if p.Reconciled || t.Matched {
				return apierr.Conflict("already_reconciled", "payment or bank transaction is already reconciled")
			}
			if err := s.settle(dbc, tenantID, p.ID, t.ID, now); err != nil {
				return err
			}
		}
		if err := s.matches.UpdateFields(dbc, tenantID, id, map[string]interface{}{
			"status":     status,
			"decided_at": now,
			"updated_at": now,
		}); err != nil {
			return fmt.Errorf("update match: %w", err)
		}
		m.Status = status
		m.DecidedAt = timePtr(now)
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.AddReconcileMatches(status, 1)
	return out, nil
}

func (s *reconciliationService) ConfirmMatch(ctx context.Context, id uuid.UUID) (*types.ReconciliationMatch, error) {
	return s.decide(ctx, id, types.MatchStatusConfirmed)
}

func (s *reconciliationService) RejectMatch(ctx context.Context, id uuid.UUID) (*types.ReconciliationMatch, error) {
	return s.decide(ctx, id, types.MatchStatusRejected)
}

func (s *reconciliationService) ListMatches(ctx context.Context, f repos.MatchFilter) ([]*types.ReconciliationMatch, int64, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	switch f.Status {
	case "", types.MatchStatusSuggested, types.MatchStatusConfirmed, types.MatchStatusRejected:
	default:
		return nil, 0, apierr.Invalid("invalid_status", "unknown match status %q", f.Status)
	}
	page := normalizePage(f.Limit, f.Offset)
	f.Limit, f.Offset = page.Limit, page.Offset
	return s.matches.List(dbctx.Context{Ctx: ctx}, tenantID, f)
}

func (s *reconciliationService) Unmatched(ctx context.Context) (*Unmatched, error) {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return nil, err
	}
	out := &Unmatched{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.payments.ListUnreconciled(dbctx.Context{Ctx: gctx}, tenantID)
		out.Payments = p
		return err
	})
	g.Go(func() error {
		t, err := s.txs.ListUnmatched(dbctx.Context{Ctx: gctx}, tenantID, nil)
		out.Transactions = t
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load unmatched items: %w", err)
	}
	if out.Payments == nil {
		out.Payments = []*types.Payment{}
	}
	if out.Transactions == nil {
		out.Transactions = []*types.BankTransaction{}
	}
	return out, nil
}

func (s *reconciliationService) ReconcilePending(ctx context.Context, limit int) (int, error) {
	pending, err := s.statements.ListByStatus(dbctx.Context{Ctx: ctx}, types.StatementStatusImported, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending statements: %w", err)
	}
	var (
		done int
		errs []error
	)
	for _, st := range pending {
		id := st.ID
		if _, err := s.Reconcile(ctx, st.TenantID, &id); err != nil {
			s.log.Warn("Statement reconciliation failed", "statement_id", id, "tenant_id", st.TenantID, "error", err)
			errs = append(errs, fmt.Errorf("statement %s: %w", id, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

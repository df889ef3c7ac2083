package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	types "github.com/yungbote/deskbase-backend/internal/domain"
	"github.com/yungbote/deskbase-backend/internal/platform/dbctx"
	"github.com/yungbote/deskbase-backend/internal/realtime"
)

const statementCSV = `Date,Amount,Currency,Description,Counterparty,Reference
2026-03-02,96.00,EUR,Payment INV-2026-0042,ADA LOVELACE,
2026-03-04,50.30,EUR,Transfer,Robert Smith,
2026-03-04,-12.00,EUR,Bank fee,,
`

type recordingDispatcher struct {
	tenantID    uuid.UUID
	statementID *uuid.UUID
}

func (d *recordingDispatcher) StartReconcile(_ context.Context, tenantID uuid.UUID, statementID *uuid.UUID) (string, error) {
	d.tenantID, d.statementID = tenantID, statementID
	return "reconcile-" + tenantID.String(), nil
}

func seedReconcilePayments(t *testing.T, h *harness) (ada, bob *types.Payment) {
	t.Helper()
	received := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ada, _, err := h.billing.RecordPayment(h.ctx, PaymentInput{
		Amount: 9600, Reference: "INV-2026-0042", PayerName: "Ada Lovelace", ReceivedAt: &received,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	bob, _, err = h.billing.RecordPayment(h.ctx, PaymentInput{
		Amount: 5000, PayerName: "Bob", ReceivedAt: &received,
	})
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	return ada, bob
}

func TestImportStatementDedupesByContent(t *testing.T) {
	h := newHarness(t)
	st, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(statementCSV))
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if st.TransactionCount != 3 || st.Status != types.StatementStatusImported {
		t.Fatalf("unexpected statement: %+v", st)
	}
	_, err = h.reconcile.ImportStatement(h.ctx, "march-again.csv", []byte(statementCSV))
	wantCode(t, err, "statement_already_imported")

	_, err = h.reconcile.ImportStatement(h.ctx, "bad.csv", []byte("Date,Memo\n2026-03-01,x\n"))
	wantCode(t, err, "invalid_statement")

	list, err := h.reconcile.ListStatements(h.ctx, Page{})
	if err != nil || len(list) != 1 {
		t.Fatalf("ListStatements: n=%d err=%v", len(list), err)
	}
}

type memArchive struct {
	mu   sync.Mutex
	objs map[string][]byte
	err  error
}

func (a *memArchive) Put(_ context.Context, key, _ string, r io.Reader) error {
	if a.err != nil {
		return a.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objs == nil {
		a.objs = map[string][]byte{}
	}
	a.objs[key] = data
	return nil
}

func (a *memArchive) Open(_ context.Context, key string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objs[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (a *memArchive) Close() error { return nil }

func (a *memArchive) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objs)
}

// racingStatements hides existing fingerprints, as when two imports of the
// same file pass the pre-check together.
type racingStatements struct {
	repos.BankStatementRepo
}

func (racingStatements) GetByFingerprint(dbctx.Context, uuid.UUID, string) (*types.BankStatement, error) {
	return nil, nil
}

func TestImportStatementArchivesOnlyCommittedImports(t *testing.T) {
	h := newHarness(t)
	archive := &memArchive{}
	svc := h.reconcile.(*reconciliationService)
	svc.archive = archive

	st, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(statementCSV))
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if st.ArchiveKey == "" || archive.len() != 1 {
		t.Fatalf("want one archived object, got key=%q objects=%d", st.ArchiveKey, archive.len())
	}
	stored, err := h.reconcile.GetStatement(h.ctx, st.ID)
	if err != nil || stored.ArchiveKey != st.ArchiveKey {
		t.Fatalf("archive key not persisted: %+v err=%v", stored, err)
	}

	svc.statements = racingStatements{BankStatementRepo: h.statementRepo}
	_, err = h.reconcile.ImportStatement(h.ctx, "march-again.csv", []byte(statementCSV))
	wantCode(t, err, "statement_already_imported")
	if archive.len() != 1 {
		t.Fatalf("rejected import left %d archived objects", archive.len())
	}

	svc.statements = h.statementRepo
	archive.err = errors.New("bucket unavailable")
	other, err := h.reconcile.ImportStatement(h.ctx, "april.csv", []byte("Date,Amount\n2026-04-01,10.00\n"))
	if err != nil {
		t.Fatalf("import must survive a failed upload: %v", err)
	}
	if other.ArchiveKey != "" {
		t.Fatalf("no key without an archived object, got %q", other.ArchiveKey)
	}
}

func TestReconcileAutoConfirmsAndSuggests(t *testing.T) {
	h := newHarness(t)
	ada, bob := seedReconcilePayments(t, h)
	st, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(statementCSV))
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}

	res, err := h.reconcile.Run(h.ctx, &st.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Async || res.Confirmed != 1 || res.Suggested != 1 {
		t.Fatalf("want 1 confirmed + 1 suggested inline, got %+v", res)
	}
	if h.events.count(realtime.SSEEventReconcileDone) != 1 {
		t.Fatalf("want a reconcile event")
	}

	dbc := dbctx.Context{Ctx: h.ctx}
	gotAda, err := h.paymentRepo.GetByID(dbc, h.tenant.ID, ada.ID)
	if err != nil || !gotAda.Reconciled || gotAda.BankTransactionID == nil {
		t.Fatalf("exact match must auto-confirm: %+v err=%v", gotAda, err)
	}
	gotBob, err := h.paymentRepo.GetByID(dbc, h.tenant.ID, bob.ID)
	if err != nil || gotBob.Reconciled {
		t.Fatalf("fuzzy match must wait for review: %+v err=%v", gotBob, err)
	}
	gotSt, err := h.reconcile.GetStatement(h.ctx, st.ID)
	if err != nil || gotSt.Status != types.StatementStatusReconciled {
		t.Fatalf("statement status: %+v err=%v", gotSt, err)
	}

	// a second run must not suggest the pending pair again
	again, err := h.reconcile.Reconcile(h.ctx, h.tenant.ID, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if again.Suggested != 0 || again.Confirmed != 0 {
		t.Fatalf("rerun: want nothing new, got %+v", again)
	}

	suggested, total, err := h.reconcile.ListMatches(h.ctx, repos.MatchFilter{Status: types.MatchStatusSuggested})
	if err != nil || total != 1 {
		t.Fatalf("ListMatches: total=%d err=%v", total, err)
	}
	m, err := h.reconcile.ConfirmMatch(h.ctx, suggested[0].ID)
	if err != nil {
		t.Fatalf("ConfirmMatch: %v", err)
	}
	if m.Status != types.MatchStatusConfirmed || m.DecidedAt == nil {
		t.Fatalf("unexpected match: %+v", m)
	}
	_, err = h.reconcile.RejectMatch(h.ctx, m.ID)
	wantCode(t, err, "match_decided")

	left, err := h.reconcile.Unmatched(h.ctx)
	if err != nil {
		t.Fatalf("Unmatched: %v", err)
	}
	if len(left.Payments) != 0 || len(left.Transactions) != 0 {
		t.Fatalf("everything is reconciled, got %d payments %d transactions", len(left.Payments), len(left.Transactions))
	}
}

func TestRejectedMatchIsNotSuggestedAgain(t *testing.T) {
	h := newHarness(t)
	seedReconcilePayments(t, h)
	if _, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(statementCSV)); err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if _, err := h.reconcile.Reconcile(h.ctx, h.tenant.ID, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	suggested, _, err := h.reconcile.ListMatches(h.ctx, repos.MatchFilter{Status: types.MatchStatusSuggested})
	if err != nil || len(suggested) != 1 {
		t.Fatalf("ListMatches: n=%d err=%v", len(suggested), err)
	}
	if _, err := h.reconcile.RejectMatch(h.ctx, suggested[0].ID); err != nil {
		t.Fatalf("RejectMatch: %v", err)
	}

	res, err := h.reconcile.Reconcile(h.ctx, h.tenant.ID, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Suggested != 0 {
		t.Fatalf("rejected pair suggested again: %+v", res)
	}
	left, err := h.reconcile.Unmatched(h.ctx)
	if err != nil {
		t.Fatalf("Unmatched: %v", err)
	}
	if len(left.Payments) != 1 || len(left.Transactions) != 1 {
		t.Fatalf("want Bob and his transfer unmatched, got %d/%d", len(left.Payments), len(left.Transactions))
	}
}

func TestRejectedMatchLeavesRunnerUpSuggested(t *testing.T) {
	h := newHarness(t)
	_, bob := seedReconcilePayments(t, h)
	// Bob's 50.00 arrives twice: the closer transfer wins first, the later credit is next best.
	const twoCredits = `Date,Amount,Currency,Description,Counterparty,Reference
2026-03-04,50.30,EUR,Transfer,Robert Smith,
2026-03-07,50.00,EUR,Transfer,,
`
	if _, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(twoCredits)); err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	if _, err := h.reconcile.Reconcile(h.ctx, h.tenant.ID, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	first, _, err := h.reconcile.ListMatches(h.ctx, repos.MatchFilter{Status: types.MatchStatusSuggested})
	if err != nil || len(first) != 1 || first[0].PaymentID != bob.ID {
		t.Fatalf("ListMatches: %+v err=%v", first, err)
	}
	if _, err := h.reconcile.RejectMatch(h.ctx, first[0].ID); err != nil {
		t.Fatalf("RejectMatch: %v", err)
	}

	res, err := h.reconcile.Reconcile(h.ctx, h.tenant.ID, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Suggested != 1 {
		t.Fatalf("want the runner-up suggested, got %+v", res)
	}
	second, _, err := h.reconcile.ListMatches(h.ctx, repos.MatchFilter{Status: types.MatchStatusSuggested})
	if err != nil || len(second) != 1 {
		t.Fatalf("ListMatches: n=%d err=%v", len(second), err)
	}
	if second[0].PaymentID != bob.ID || second[0].BankTransactionID == first[0].BankTransactionID {
		t.Fatalf("want Bob paired with the other credit, got %+v", second[0])
	}
}

func TestRunDispatchesWhenWorkerConfigured(t *testing.T) {
	h := newHarness(t)
	d := &recordingDispatcher{}
	h.reconcile.(*reconciliationService).dispatcher = d

	st, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(statementCSV))
	if err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	res, err := h.reconcile.Run(h.ctx, &st.ID)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Async || res.WorkflowID == "" {
		t.Fatalf("want async run, got %+v", res)
	}
	if d.tenantID != h.tenant.ID || d.statementID == nil || *d.statementID != st.ID {
		t.Fatalf("dispatcher got tenant=%s statement=%v", d.tenantID, d.statementID)
	}
	got, err := h.reconcile.GetStatement(h.ctx, st.ID)
	if err != nil || got.Status != types.StatementStatusReconciling {
		t.Fatalf("want reconciling, got %+v err=%v", got, err)
	}

	missing := uuid.New()
	_, err = h.reconcile.Run(h.ctx, &missing)
	wantCode(t, err, "statement_not_found")
}

func TestReconcilePendingRunsImportedStatements(t *testing.T) {
	h := newHarness(t)
	seedReconcilePayments(t, h)
	if _, err := h.reconcile.ImportStatement(h.ctx, "march.csv", []byte(statementCSV)); err != nil {
		t.Fatalf("ImportStatement: %v", err)
	}
	n, err := h.reconcile.ReconcilePending(h.ctx, 10)
	if err != nil || n != 1 {
		t.Fatalf("ReconcilePending: n=%d err=%v", n, err)
	}
	n, err = h.reconcile.ReconcilePending(h.ctx, 10)
	if err != nil || n != 0 {
		t.Fatalf("second pass: n=%d err=%v", n, err)
	}
}

package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/deskbase-backend/internal/data/repos"
	"github.com/yungbote/deskbase-backend/internal/http/response"
	"github.com/yungbote/deskbase-backend/internal/services"
)

const maxStatementSize = 10 << 20

type ReconciliationHandler struct {
	reconcile services.ReconciliationService
}

func NewReconciliationHandler(reconcile services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconcile: reconcile}
}

// POST /api/statements (multipart field "file", or a raw CSV body)
func (h *ReconciliationHandler) ImportStatement(c *gin.Context) {
	filename, data, err := readStatement(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	if len(data) > maxStatementSize {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "statement_too_large", nil)
		return
	}
	st, err := h.reconcile.ImportStatement(c.Request.Context(), filename, data)
	if err != nil {
		response.RespondAPIError(c, "import_statement_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"statement": st})
}

func readStatement(c *gin.Context) (string, []byte, error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxStatementSize+1))
		return fh.Filename, data, err
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStatementSize+1))
	name := c.Query("filename")
	if name == "" {
		name = "statement.csv"
	}
	return name, data, err
}

// GET /api/statements
func (h *ReconciliationHandler) ListStatements(c *gin.Context) {
	limit, offset := pageParams(c)
	list, err := h.reconcile.ListStatements(c.Request.Context(), services.Page{Limit: limit, Offset: offset})
	if err != nil {
		response.RespondAPIError(c, "list_statements_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"statements": list})
}

// GET /api/statements/:id
func (h *ReconciliationHandler) GetStatement(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_statement_id")
	if !ok {
		return
	}
	st, err := h.reconcile.GetStatement(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "get_statement_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"statement": st})
}

// POST /api/reconciliation/run?statement_id=
func (h *ReconciliationHandler) Run(c *gin.Context) {
	statementID, err := queryUUID(c, "statement_id")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_statement_id", err)
		return
	}
	res, err := h.reconcile.Run(c.Request.Context(), statementID)
	if err != nil {
		response.RespondAPIError(c, "reconcile_failed", err)
		return
	}
	status := http.StatusOK
	if res.Async {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"run": res})
}

// GET /api/reconciliation/matches?status=
func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	limit, offset := pageParams(c)
	list, total, err := h.reconcile.ListMatches(c.Request.Context(), repos.MatchFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.RespondAPIError(c, "list_matches_failed", err)
		return
	}
	response.RespondList(c, list, total, limit, offset)
}

// POST /api/reconciliation/matches/:id/confirm
func (h *ReconciliationHandler) ConfirmMatch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_match_id")
	if !ok {
		return
	}
	m, err := h.reconcile.ConfirmMatch(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "confirm_match_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"match": m})
}

// POST /api/reconciliation/matches/:id/reject
func (h *ReconciliationHandler) RejectMatch(c *gin.Context) {
	id, ok := pathID(c, "id", "invalid_match_id")
	if !ok {
		return
	}
	m, err := h.reconcile.RejectMatch(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, "reject_match_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"match": m})
}

// GET /api/reconciliation/unmatched
func (h *ReconciliationHandler) Unmatched(c *gin.Context) {
	u, err := h.reconcile.Unmatched(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, "unmatched_failed", err)
		return
	}
	response.RespondOK(c, u)
}

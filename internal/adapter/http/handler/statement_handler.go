package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// StatementService defines the behavior needed by StatementHandler.
type StatementService interface {
	GetStatement(ctx context.Context, accountID string, limit int, cursor string) (*usecase.StatementPage, error)
}

// StatementHandler serves account statements.
type StatementHandler struct {
	statementUC StatementService
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(statementUC StatementService) *StatementHandler {
	return &StatementHandler{statementUC: statementUC}
}

// Get returns one page of the account statement, newest first.
func (h *StatementHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)
	cursor := r.URL.Query().Get("cursor")

	page, err := h.statementUC.GetStatement(r.Context(), accountID, limit, cursor)
	if err != nil {
		writeDomainError(w, r, err, "failed to get statement", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatementFromPage(accountID, page))
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	OpenAccount(ctx context.Context, input usecase.OpenAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error)
	ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, error)
	FreezeAccount(ctx context.Context, id string) (*domain.Account, error)
	UnfreezeAccount(ctx context.Context, id string) (*domain.Account, error)
	CloseAccount(ctx context.Context, id string) (*domain.Account, error)
	GetAuditTrail(ctx context.Context, accountID string) ([]*domain.AuditLog, error)
	ListEvents(ctx context.Context, accountID string, input usecase.ListAccountsInput) ([]*domain.OutboxEvent, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Open opens a new account.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req dto.OpenAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, "invalid request body", nil)
		return
	}

	account, err := h.accountUC.OpenAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err, "failed to open account", nil)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, "failed to get account", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts, filtered by owner_id when given.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		accounts []*domain.Account
		err      error
	)

	if ownerID := r.URL.Query().Get("owner_id"); ownerID != "" {
		accounts, err = h.accountUC.ListAccountsByOwner(r.Context(), ownerID)
	} else {
		accounts, err = h.accountUC.ListAccounts(r.Context(), usecase.ListAccountsInput{
			Limit:  parseIntQuery(r, "limit", domain.DefaultPageSize),
			Offset: parseIntQuery(r, "offset", 0),
		})
	}

	if err != nil {
		writeDomainError(w, r, err, "failed to list accounts", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Freeze blocks all balance changes on an account.
func (h *AccountHandler) Freeze(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.accountUC.FreezeAccount, "failed to freeze account")
}

// Unfreeze reactivates a frozen account.
func (h *AccountHandler) Unfreeze(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.accountUC.UnfreezeAccount, "failed to unfreeze account")
}

// Close closes an account whose balance is zero.
func (h *AccountHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.accountUC.CloseAccount, "failed to close account")
}

func (h *AccountHandler) changeStatus(
	w http.ResponseWriter,
	r *http.Request,
	change func(ctx context.Context, id string) (*domain.Account, error),
	message string,
) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "missing account ID", "")
		return
	}

	account, err := change(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, message, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// AuditTrail lists the lifecycle changes of an account.
func (h *AccountHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	logs, err := h.accountUC.GetAuditTrail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, "failed to get audit trail", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}

// Events lists the events raised for an account, oldest first.
func (h *AccountHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.accountUC.ListEvents(r.Context(), chi.URLParam(r, "id"), usecase.ListAccountsInput{
		Limit:  parseIntQuery(r, "limit", domain.DefaultPageSize),
		Offset: parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, r, err, "failed to list events", nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	AccountNumber string          `json:"account_number"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	Status        string          `json:"status"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		OwnerID:       a.OwnerID,
		AccountNumber: a.AccountNumber,
		Currency:      a.Currency,
		Balance:       a.Balance.Round(domain.MaxAmountScale),
		Status:        string(a.Status),
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID                   string          `json:"id"`
	IdempotencyKey       string          `json:"idempotency_key"`
	Type                 string          `json:"type"`
	Status               string          `json:"status"`
	SourceAccountID      *string         `json:"source_account_id,omitempty"`
	DestinationAccountID *string         `json:"destination_account_id,omitempty"`
	ExternalDestination  string          `json:"external_destination,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Category             string          `json:"category,omitempty"`
	Description          string          `json:"description,omitempty"`
	FailureCode          string          `json:"failure_code,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:                   t.ID,
		IdempotencyKey:       t.IdempotencyKey,
		Type:                 string(t.Type),
		Status:               string(t.Status),
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		ExternalDestination:  t.ExternalDestination,
		Amount:               t.Amount.Round(domain.MaxAmountScale),
		Currency:             t.Currency,
		Category:             t.Category,
		Description:          t.Description,
		FailureCode:          t.FailureCode,
		CreatedAt:            t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(transactions []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(transactions))
	for i, t := range transactions {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// StatementResponse is one page of an account statement.
type StatementResponse struct {
	AccountID    string                 `json:"account_id"`
	Transactions []*TransactionResponse `json:"transactions"`
	NextCursor   string                 `json:"next_cursor,omitempty"`
}

// StatementFromPage converts a statement page to response.
func StatementFromPage(accountID string, page *usecase.StatementPage) *StatementResponse {
	return &StatementResponse{
		AccountID:    accountID,
		Transactions: TransactionsFromDomain(page.Transactions),
		NextCursor:   page.NextCursor,
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID                     string          `json:"id"`
	AccountID              string          `json:"account_id"`
	TransactionID          string          `json:"transaction_id"`
	Amount                 decimal.Decimal `json:"amount"`
	AccountPreviousBalance decimal.Decimal `json:"account_previous_balance"`
	AccountCurrentBalance  decimal.Decimal `json:"account_current_balance"`
	AccountVersion         int64           `json:"account_version"`
	CreatedAt              time.Time       `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:                     e.ID,
		AccountID:              e.AccountID,
		TransactionID:          e.TransactionID,
		Amount:                 e.Amount,
		AccountPreviousBalance: e.AccountPreviousBalance,
		AccountCurrentBalance:  e.AccountCurrentBalance,
		AccountVersion:         e.AccountVersion,
		CreatedAt:              e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// AuditLogResponse is one lifecycle change of an account.
type AuditLogResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Action      string         `json:"action"`
	RequestID   string         `json:"request_id,omitempty"`
	BeforeState map[string]any `json:"before_state,omitempty"`
	AfterState  map[string]any `json:"after_state,omitempty"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// AuditLogsFromDomain converts audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:          l.ID,
			UserID:      l.UserID,
			Action:      l.Action,
			RequestID:   l.RequestID,
			BeforeState: l.BeforeState,
			AfterState:  l.AfterState,
			Status:      l.Status,
			CreatedAt:   l.CreatedAt,
		}
	}
	return result
}

// EventResponse is an outbox event raised for an account.
type EventResponse struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"payload"`
	Published   bool           `json:"published"`
	CreatedAt   time.Time      `json:"created_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

// EventsFromDomain converts outbox events to responses.
func EventsFromDomain(events []*domain.OutboxEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = &EventResponse{
			ID:          e.ID,
			EventType:   e.EventType,
			Payload:     e.Payload,
			Published:   e.Published,
			CreatedAt:   e.CreatedAt,
			PublishedAt: e.PublishedAt,
		}
	}
	return result
}

// BalanceResponse is an account balance at a point in time.
type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	At        time.Time       `json:"at"`
}

// ReconciliationResponse is the result of checking one account.
type ReconciliationResponse struct {
	AccountID         string          `json:"account_id"`
	RecordedBalance   decimal.Decimal `json:"recorded_balance"`
	CalculatedBalance decimal.Decimal `json:"calculated_balance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"is_reconciled"`
	LastChecked       time.Time       `json:"last_checked"`
}

// ReconciliationFromResult converts a reconciliation result to response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// LedgerConsistencyResponse reports the conservation check.
type LedgerConsistencyResponse struct {
	Consistent      bool            `json:"consistent"`
	TotalBalance    decimal.Decimal `json:"total_balance"`
	NetExternalFlow decimal.Decimal `json:"net_external_flow"`
}

// ConsistencyFromTotals converts ledger totals to response.
func ConsistencyFromTotals(t usecase.LedgerTotals, consistent bool) *LedgerConsistencyResponse {
	return &LedgerConsistencyResponse{
		Consistent:      consistent,
		TotalBalance:    t.TotalBalance,
		NetExternalFlow: t.NetExternalFlow,
	}
}

// ReconciliationReportResponse is the ledger-wide reconciliation report.
type ReconciliationReportResponse struct {
	TotalAccounts      int                        `json:"total_accounts"`
	ReconciledAccounts int                        `json:"reconciled_accounts"`
	Discrepancies      []*ReconciliationResponse  `json:"discrepancies"`
	Ledger             *LedgerConsistencyResponse `json:"ledger"`
	CheckedAt          time.Time                  `json:"checked_at"`
}

// ReportFromDomain converts a reconciliation report to response.
func ReportFromDomain(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromResult(d)
	}

	return &ReconciliationReportResponse{
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
		Ledger:             ConsistencyFromTotals(r.Totals, r.LedgerConsistent),
		CheckedAt:          r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses. Transaction is set
// when a money movement was recorded as FAILED.
type ErrorResponse struct {
	Error       string               `json:"error"`
	Code        string               `json:"code"`
	Message     string               `json:"message,omitempty"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

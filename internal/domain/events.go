package domain

import "time"

// Event types
const (
	EventTypeBalanceChanged       = "account.balance_changed"
	EventTypeAccountOpened        = "account.opened"
	EventTypeAccountStatusChanged = "account.status_changed"
)

// Aggregate types
const (
	AggregateTypeAccount = "account"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransactionSnapshot is the wire form of a transaction inside event payloads.
type TransactionSnapshot struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Status               string `json:"status"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
	ExternalDestination  string `json:"external_destination,omitempty"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	Category             string `json:"category,omitempty"`
	FailureCode          string `json:"failure_code,omitempty"`
	CreatedAt            string `json:"created_at"`
}

// BalanceChangedEvent payload
type BalanceChangedEvent struct {
	AccountID   string              `json:"account_id"`
	NewBalance  string              `json:"new_balance"`
	Transaction TransactionSnapshot `json:"transaction"`
}

// AccountOpenedEvent payload
type AccountOpenedEvent struct {
	AccountID     string `json:"account_id"`
	OwnerID       string `json:"owner_id"`
	AccountNumber string `json:"account_number"`
	Currency      string `json:"currency"`
}

// AccountStatusChangedEvent payload
type AccountStatusChangedEvent struct {
	AccountID string `json:"account_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// SnapshotTransaction converts a transaction for an event payload.
func SnapshotTransaction(t *Transaction) TransactionSnapshot {
	return TransactionSnapshot{
		ID:                   t.ID,
		Type:                 string(t.Type),
		Status:               string(t.Status),
		SourceAccountID:      deref(t.SourceAccountID),
		DestinationAccountID: deref(t.DestinationAccountID),
		ExternalDestination:  t.ExternalDestination,
		Amount:               t.Amount.StringFixed(2),
		Currency:             t.Currency,
		Category:             t.Category,
		FailureCode:          t.FailureCode,
		CreatedAt:            t.CreatedAt.Format(time.RFC3339Nano),
	}
}

package domain

import (
	"encoding/json"
	"time"
)

// AuditLog records who changed an account and what it looked like before and after.
type AuditLog struct {
	ID           string
	UserID       string // Who performed the action
	Action       string // What action (account.open, account.freeze, etc.)
	ResourceType string // Type of resource (account, transaction)
	ResourceID   string // ID of the resource
	RequestID    string // Request ID for tracing
	BeforeState  JSON   // State before the action
	AfterState   JSON   // State after the action
	Status       string // success, failure
	ErrorMessage string
	CreatedAt    time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	AuditActionAccountOpen     AuditAction = "account.open"
	AuditActionAccountFreeze   AuditAction = "account.freeze"
	AuditActionAccountUnfreeze AuditAction = "account.unfreeze"
	AuditActionAccountClose    AuditAction = "account.close"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

package memory

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// CreateTx stages an audit log entry.
func (r *AuditRepository) CreateTx(_ context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	row := *log

	return t.stage(func(s *Store) {
		s.audit = append(s.audit, &row)
	})
}

// GetByResourceID lists the audit trail of a resource, oldest first.
func (r *AuditRepository) GetByResourceID(_ context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var logs []*domain.AuditLog
	for _, l := range r.store.audit {
		if l.ResourceType == resourceType && l.ResourceID == resourceID {
			c := *l
			logs = append(logs, &c)
		}
	}

	return logs, nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iho/bankledger/internal/domain"
)

// ownedAccount loads an account and checks that a customer caller owns it.
func ownedAccount(ctx context.Context, repo AccountRepository, accountID string) (*domain.Account, error) {
	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := domain.AuthorizeOwner(ctx, account.OwnerID); err != nil {
		return nil, fmt.Errorf("%w: account %s", err, accountID)
	}

	return account, nil
}

// authorizeAccounts passes when a customer caller owns at least one of the
// accounts. Unknown ids are skipped.
func authorizeAccounts(ctx context.Context, repo AccountRepository, accountIDs ...string) error {
	if !domain.IsCustomer(ctx) {
		return nil
	}

	for _, id := range accountIDs {
		if id == "" {
			continue
		}

		account, err := repo.GetByID(ctx, id)
		if errors.Is(err, domain.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		if domain.AuthorizeOwner(ctx, account.OwnerID) == nil {
			return nil
		}
	}

	return domain.ErrForbidden
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package linkdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for linked account persistence.
//
// Error semantics:
//   - ErrNotFound: the account does not exist (Get)
//   - ErrNoRowsAffected: UPDATE or DELETE matched no rows
//   - Other errors: infrastructure failures
type Repository interface {
	Get(ctx context.Context, db bun.IDB, tag string) (*LinkedAccount, error)
	// Save inserts the account or moves an existing tag to the new owner.
	Save(ctx context.Context, db bun.IDB, account *LinkedAccount) error
	Delete(ctx context.Context, db bun.IDB, userID, tag string) error
	SetVerified(ctx context.Context, db bun.IDB, tag string, verified bool) error
	SetOrder(ctx context.Context, db bun.IDB, userID, tag string, order int) error
	// NextOrder is one past the highest order the user holds, 0 for none.
	NextOrder(ctx context.Context, db bun.IDB, userID string) (int, error)

	// ListByUser returns one identity's accounts in display order.
	ListByUser(ctx context.Context, db bun.IDB, userID string) ([]LinkedAccount, error)
	FindByUserIDs(ctx context.Context, db bun.IDB, userIDs []string) ([]LinkedAccount, error)
	// FindByGameTags returns the accounts owning tags together with every
	// other account of the same owners.
	FindByGameTags(ctx context.Context, db bun.IDB, tags []string) ([]LinkedAccount, error)
}

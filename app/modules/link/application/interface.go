package linkservice

import (
	"context"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
)

// AccountResult is the outcome of a single account change.
type AccountResult = results.OperationResult[rolesyncdomain.LinkedAccount, error]

// AccountsResult is the outcome of a change touching all of a user's accounts.
type AccountsResult = results.OperationResult[[]rolesyncdomain.LinkedAccount, error]

// Service manages identity to game account links. Every successful change
// publishes link.account.changed.v1.
type Service interface {
	LinkAccount(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag, name string) (AccountResult, error)
	UnlinkAccount(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag) (AccountResult, error)
	VerifyAccount(ctx context.Context, tag rolesyncdomain.PlayerTag, verified bool) (AccountResult, error)
	// ReorderAccounts sets the display order. tags must be exactly the
	// user's linked tags.
	ReorderAccounts(ctx context.Context, userID rolesyncdomain.UserID, tags []rolesyncdomain.PlayerTag) (AccountsResult, error)
	ListAccounts(ctx context.Context, userID rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error)

	FindByUserIDs(ctx context.Context, userIDs []rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error)
	FindByGameTags(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.LinkedAccount, error)
}

package linkservice

import (
	"context"
	"errors"
	"log/slog"

	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	linkdb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
	"github.com/uptrace/bun"
)

func normalizeTag(tag rolesyncdomain.PlayerTag) (rolesyncdomain.PlayerTag, bool) {
	t := rolesyncdomain.NormalizeTag(string(tag))
	return rolesyncdomain.PlayerTag(t), len(t) >= 2
}

// LinkAccount links tag to userID, appending it to the user's accounts.
// Linking a tag the user already owns refreshes its name.
func (s *LinkService) LinkAccount(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag, name string) (AccountResult, error) {
	return observe(s, ctx, "LinkAccount", userID, func(ctx context.Context) (AccountResult, error) {
		if userID == "" {
			return failure[rolesyncdomain.LinkedAccount](ErrInvalidUserID), nil
		}
		tag, ok := normalizeTag(tag)
		if !ok {
			return failure[rolesyncdomain.LinkedAccount](ErrInvalidTag), nil
		}

		var saved *linkdb.LinkedAccount
		var conflict bool
		err := s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
			existing, err := s.repo.Get(ctx, tx, string(tag))
			switch {
			case errors.Is(err, linkdb.ErrNotFound):
				next, err := s.repo.NextOrder(ctx, tx, string(userID))
				if err != nil {
					return err
				}
				saved = &linkdb.LinkedAccount{Tag: string(tag), UserID: string(userID), Name: name, Order: next}
			case err != nil:
				return err
			case existing.UserID != string(userID):
				conflict = true
				return nil
			default:
				existing.Name = name
				saved = existing
			}
			return s.repo.Save(ctx, tx, saved)
		})
		if err != nil {
			return AccountResult{}, err
		}
		if conflict {
			return failure[rolesyncdomain.LinkedAccount](ErrAlreadyLinked), nil
		}

		s.announce(ctx, userID, tag, linkevents.ActionLinked)
		return results.SuccessResult[rolesyncdomain.LinkedAccount, error](toDomain(*saved)), nil
	})
}

// UnlinkAccount removes one of the user's accounts.
func (s *LinkService) UnlinkAccount(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag) (AccountResult, error) {
	return observe(s, ctx, "UnlinkAccount", userID, func(ctx context.Context) (AccountResult, error) {
		tag, ok := normalizeTag(tag)
		if !ok {
			return failure[rolesyncdomain.LinkedAccount](ErrInvalidTag), nil
		}
		err := s.repo.Delete(ctx, s.db, string(userID), string(tag))
		if errors.Is(err, linkdb.ErrNoRowsAffected) {
			return failure[rolesyncdomain.LinkedAccount](ErrAccountNotLinked), nil
		}
		if err != nil {
			return AccountResult{}, err
		}

		s.announce(ctx, userID, tag, linkevents.ActionUnlinked)
		return results.SuccessResult[rolesyncdomain.LinkedAccount, error](rolesyncdomain.LinkedAccount{UserID: userID, Tag: tag}), nil
	})
}

// VerifyAccount sets the verified flag on an account.
func (s *LinkService) VerifyAccount(ctx context.Context, tag rolesyncdomain.PlayerTag, verified bool) (AccountResult, error) {
	return observe(s, ctx, "VerifyAccount", "", func(ctx context.Context) (AccountResult, error) {
		tag, ok := normalizeTag(tag)
		if !ok {
			return failure[rolesyncdomain.LinkedAccount](ErrInvalidTag), nil
		}

		var account *linkdb.LinkedAccount
		err := s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
			if err := s.repo.SetVerified(ctx, tx, string(tag), verified); err != nil {
				return err
			}
			var err error
			account, err = s.repo.Get(ctx, tx, string(tag))
			return err
		})
		if errors.Is(err, linkdb.ErrNoRowsAffected) || errors.Is(err, linkdb.ErrNotFound) {
			return failure[rolesyncdomain.LinkedAccount](ErrAccountNotLinked), nil
		}
		if err != nil {
			return AccountResult{}, err
		}

		userID := rolesyncdomain.UserID(account.UserID)
		s.announce(ctx, userID, tag, linkevents.ActionVerified)
		return results.SuccessResult[rolesyncdomain.LinkedAccount, error](toDomain(*account)), nil
	})
}

// ReorderAccounts rewrites the display order of the user's accounts.
func (s *LinkService) ReorderAccounts(ctx context.Context, userID rolesyncdomain.UserID, tags []rolesyncdomain.PlayerTag) (AccountsResult, error) {
	return observe(s, ctx, "ReorderAccounts", userID, func(ctx context.Context) (AccountsResult, error) {
		ordered := make([]string, 0, len(tags))
		seen := make(map[string]struct{}, len(tags))
		for _, t := range tags {
			tag, ok := normalizeTag(t)
			if !ok {
				return failure[[]rolesyncdomain.LinkedAccount](ErrInvalidTag), nil
			}
			if _, dup := seen[string(tag)]; dup {
				return failure[[]rolesyncdomain.LinkedAccount](ErrInvalidOrder), nil
			}
			seen[string(tag)] = struct{}{}
			ordered = append(ordered, string(tag))
		}

		var accounts []linkdb.LinkedAccount
		var mismatch bool
		err := s.runInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
			current, err := s.repo.ListByUser(ctx, tx, string(userID))
			if err != nil {
				return err
			}
			if len(current) != len(ordered) {
				mismatch = true
				return nil
			}
			for _, a := range current {
				if _, ok := seen[a.Tag]; !ok {
					mismatch = true
					return nil
				}
			}
			for i, tag := range ordered {
				if err := s.repo.SetOrder(ctx, tx, string(userID), tag, i); err != nil {
					return err
				}
			}
			accounts, err = s.repo.ListByUser(ctx, tx, string(userID))
			return err
		})
		if err != nil {
			return AccountsResult{}, err
		}
		if mismatch {
			s.logger.WarnContext(ctx, "Rejected account order",
				slog.String("user_id", string(userID)),
				slog.Any("tags", ordered),
			)
			return failure[[]rolesyncdomain.LinkedAccount](ErrInvalidOrder), nil
		}

		s.announce(ctx, userID, "", linkevents.ActionReordered)
		return results.SuccessResult[[]rolesyncdomain.LinkedAccount, error](toDomainList(accounts)), nil
	})
}

// ListAccounts returns the user's accounts in display order.
func (s *LinkService) ListAccounts(ctx context.Context, userID rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error) {
	return observe(s, ctx, "ListAccounts", userID, func(ctx context.Context) ([]rolesyncdomain.LinkedAccount, error) {
		accounts, err := s.repo.ListByUser(ctx, s.db, string(userID))
		if err != nil {
			return nil, err
		}
		return toDomainList(accounts), nil
	})
}

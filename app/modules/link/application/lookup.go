package linkservice

import (
	"context"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// FindByUserIDs returns every account owned by userIDs.
func (s *LinkService) FindByUserIDs(ctx context.Context, userIDs []rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error) {
	return observe(s, ctx, "FindByUserIDs", "", func(ctx context.Context) ([]rolesyncdomain.LinkedAccount, error) {
		ids := make([]string, 0, len(userIDs))
		for _, id := range userIDs {
			if id != "" {
				ids = append(ids, string(id))
			}
		}
		accounts, err := s.repo.FindByUserIDs(ctx, s.db, ids)
		if err != nil {
			return nil, err
		}
		return toDomainList(accounts), nil
	})
}

// FindByGameTags returns the owners' accounts for tags, siblings included.
func (s *LinkService) FindByGameTags(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.LinkedAccount, error) {
	return observe(s, ctx, "FindByGameTags", "", func(ctx context.Context) ([]rolesyncdomain.LinkedAccount, error) {
		normalized := make([]string, 0, len(tags))
		for _, t := range tags {
			if tag, ok := normalizeTag(t); ok {
				normalized = append(normalized, string(tag))
			}
		}
		accounts, err := s.repo.FindByGameTags(ctx, s.db, normalized)
		if err != nil {
			return nil, err
		}
		return toDomainList(accounts), nil
	})
}

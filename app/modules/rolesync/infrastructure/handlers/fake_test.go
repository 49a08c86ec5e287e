package rolesynchandlers

import (
	"context"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// FakeService is a programmable rolesyncservice.Service.
type FakeService struct {
	ReconcileGuildFunc           func(ctx context.Context, guildID rolesyncdomain.GuildID, opts rolesyncservice.RunOptions) (rolesyncservice.RunResult, error)
	ReconcileMemberFunc          func(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, dryRun bool) (rolesyncservice.RunResult, error)
	HandleWarStateChangedFunc    func(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]rolesyncservice.RunResult, error)
	HandleClanMembersChangedFunc func(ctx context.Context, clanTag rolesyncdomain.ClanTag, playerTags []rolesyncdomain.PlayerTag) ([]rolesyncservice.RunResult, error)
	HandleLinkChangedFunc        func(ctx context.Context, userID rolesyncdomain.UserID) ([]rolesyncservice.RunResult, error)

	trace []string
}

var _ rolesyncservice.Service = (*FakeService)(nil)

func (f *FakeService) Trace() []string { return f.trace }

func (f *FakeService) ReconcileGuild(ctx context.Context, guildID rolesyncdomain.GuildID, opts rolesyncservice.RunOptions) (rolesyncservice.RunResult, error) {
	f.trace = append(f.trace, "ReconcileGuild")
	if f.ReconcileGuildFunc != nil {
		return f.ReconcileGuildFunc(ctx, guildID, opts)
	}
	return rolesyncservice.RunResult{}, nil
}

func (f *FakeService) ReconcileMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, dryRun bool) (rolesyncservice.RunResult, error) {
	f.trace = append(f.trace, "ReconcileMember")
	if f.ReconcileMemberFunc != nil {
		return f.ReconcileMemberFunc(ctx, guildID, userID, dryRun)
	}
	return rolesyncservice.RunResult{}, nil
}

func (f *FakeService) HandleWarStateChanged(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]rolesyncservice.RunResult, error) {
	f.trace = append(f.trace, "HandleWarStateChanged")
	if f.HandleWarStateChangedFunc != nil {
		return f.HandleWarStateChangedFunc(ctx, clanTag)
	}
	return nil, nil
}

func (f *FakeService) HandleClanMembersChanged(ctx context.Context, clanTag rolesyncdomain.ClanTag, playerTags []rolesyncdomain.PlayerTag) ([]rolesyncservice.RunResult, error) {
	f.trace = append(f.trace, "HandleClanMembersChanged")
	if f.HandleClanMembersChangedFunc != nil {
		return f.HandleClanMembersChangedFunc(ctx, clanTag, playerTags)
	}
	return nil, nil
}

func (f *FakeService) HandleLinkChanged(ctx context.Context, userID rolesyncdomain.UserID) ([]rolesyncservice.RunResult, error) {
	f.trace = append(f.trace, "HandleLinkChanged")
	if f.HandleLinkChangedFunc != nil {
		return f.HandleLinkChangedFunc(ctx, userID)
	}
	return nil, nil
}

func (f *FakeService) CurrentRun(rolesyncdomain.GuildID) (*rolesyncservice.Run, bool) { return nil, false }

func (f *FakeService) LatestRun(rolesyncdomain.GuildID) (*rolesyncservice.Run, bool) { return nil, false }

func (f *FakeService) ClearRun(rolesyncdomain.GuildID) bool { return false }

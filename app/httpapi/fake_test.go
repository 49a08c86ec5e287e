package httpapi

import (
	"context"
	"encoding/json"
	"sync"

	guildservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/application"
	linkservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/application"
	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/ThreeDotsLabs/watermill/message"
)

// FakeRolesyncService is a programmable rolesyncservice.Service.
type FakeRolesyncService struct {
	ReconcileGuildFunc  func(ctx context.Context, guildID rolesyncdomain.GuildID, opts rolesyncservice.RunOptions) (rolesyncservice.RunResult, error)
	ReconcileMemberFunc func(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, dryRun bool) (rolesyncservice.RunResult, error)
	CurrentRunFunc      func(guildID rolesyncdomain.GuildID) (*rolesyncservice.Run, bool)
	LatestRunFunc       func(guildID rolesyncdomain.GuildID) (*rolesyncservice.Run, bool)
	ClearRunFunc        func(guildID rolesyncdomain.GuildID) bool
}

var _ rolesyncservice.Service = (*FakeRolesyncService)(nil)

func (f *FakeRolesyncService) ReconcileGuild(ctx context.Context, guildID rolesyncdomain.GuildID, opts rolesyncservice.RunOptions) (rolesyncservice.RunResult, error) {
	if f.ReconcileGuildFunc != nil {
		return f.ReconcileGuildFunc(ctx, guildID, opts)
	}
	return rolesyncservice.RunResult{}, nil
}

func (f *FakeRolesyncService) ReconcileMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, dryRun bool) (rolesyncservice.RunResult, error) {
	if f.ReconcileMemberFunc != nil {
		return f.ReconcileMemberFunc(ctx, guildID, userID, dryRun)
	}
	return rolesyncservice.RunResult{}, nil
}

func (f *FakeRolesyncService) HandleWarStateChanged(context.Context, rolesyncdomain.ClanTag) ([]rolesyncservice.RunResult, error) {
	return nil, nil
}

func (f *FakeRolesyncService) HandleClanMembersChanged(context.Context, rolesyncdomain.ClanTag, []rolesyncdomain.PlayerTag) ([]rolesyncservice.RunResult, error) {
	return nil, nil
}

func (f *FakeRolesyncService) HandleLinkChanged(context.Context, rolesyncdomain.UserID) ([]rolesyncservice.RunResult, error) {
	return nil, nil
}

func (f *FakeRolesyncService) CurrentRun(guildID rolesyncdomain.GuildID) (*rolesyncservice.Run, bool) {
	if f.CurrentRunFunc != nil {
		return f.CurrentRunFunc(guildID)
	}
	return nil, false
}

func (f *FakeRolesyncService) LatestRun(guildID rolesyncdomain.GuildID) (*rolesyncservice.Run, bool) {
	if f.LatestRunFunc != nil {
		return f.LatestRunFunc(guildID)
	}
	return nil, false
}

func (f *FakeRolesyncService) ClearRun(guildID rolesyncdomain.GuildID) bool {
	if f.ClearRunFunc != nil {
		return f.ClearRunFunc(guildID)
	}
	return false
}

// FakeGuildService is a programmable guildservice.Service.
type FakeGuildService struct {
	ResolveFunc       func(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error)
	SetSettingFunc    func(ctx context.Context, guildID rolesyncdomain.GuildID, key string, value json.RawMessage) (guildservice.SettingResult, error)
	DeleteSettingFunc func(ctx context.Context, guildID rolesyncdomain.GuildID, key string) (guildservice.SettingResult, error)
	LinkClanFunc      func(ctx context.Context, guildID rolesyncdomain.GuildID, clan guildservice.ClanLink) (guildservice.ClanResult, error)
	UnlinkClanFunc    func(ctx context.Context, guildID rolesyncdomain.GuildID, clanTag rolesyncdomain.ClanTag) (guildservice.ClanResult, error)
	ListClansFunc     func(ctx context.Context, guildID rolesyncdomain.GuildID) ([]guildservice.ClanLink, error)
}

var _ guildservice.Service = (*FakeGuildService)(nil)

func (f *FakeGuildService) Resolve(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error) {
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, guildID)
	}
	return &rolesyncdomain.GuildRoles{GuildID: guildID}, nil
}

func (f *FakeGuildService) GuildsForClan(context.Context, rolesyncdomain.ClanTag) ([]rolesyncdomain.GuildID, error) {
	return nil, nil
}

func (f *FakeGuildService) ConfiguredGuilds(context.Context) ([]rolesyncdomain.GuildID, error) {
	return nil, nil
}

func (f *FakeGuildService) SetSetting(ctx context.Context, guildID rolesyncdomain.GuildID, key string, value json.RawMessage) (guildservice.SettingResult, error) {
	if f.SetSettingFunc != nil {
		return f.SetSettingFunc(ctx, guildID, key, value)
	}
	return guildservice.SettingResult{}, nil
}

func (f *FakeGuildService) DeleteSetting(ctx context.Context, guildID rolesyncdomain.GuildID, key string) (guildservice.SettingResult, error) {
	if f.DeleteSettingFunc != nil {
		return f.DeleteSettingFunc(ctx, guildID, key)
	}
	return guildservice.SettingResult{}, nil
}

func (f *FakeGuildService) LinkClan(ctx context.Context, guildID rolesyncdomain.GuildID, clan guildservice.ClanLink) (guildservice.ClanResult, error) {
	if f.LinkClanFunc != nil {
		return f.LinkClanFunc(ctx, guildID, clan)
	}
	return guildservice.ClanResult{}, nil
}

func (f *FakeGuildService) UnlinkClan(ctx context.Context, guildID rolesyncdomain.GuildID, clanTag rolesyncdomain.ClanTag) (guildservice.ClanResult, error) {
	if f.UnlinkClanFunc != nil {
		return f.UnlinkClanFunc(ctx, guildID, clanTag)
	}
	return guildservice.ClanResult{}, nil
}

func (f *FakeGuildService) ListClans(ctx context.Context, guildID rolesyncdomain.GuildID) ([]guildservice.ClanLink, error) {
	if f.ListClansFunc != nil {
		return f.ListClansFunc(ctx, guildID)
	}
	return nil, nil
}

// FakeLinkService is a programmable linkservice.Service.
type FakeLinkService struct {
	LinkAccountFunc     func(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag, name string) (linkservice.AccountResult, error)
	UnlinkAccountFunc   func(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag) (linkservice.AccountResult, error)
	VerifyAccountFunc   func(ctx context.Context, tag rolesyncdomain.PlayerTag, verified bool) (linkservice.AccountResult, error)
	ReorderAccountsFunc func(ctx context.Context, userID rolesyncdomain.UserID, tags []rolesyncdomain.PlayerTag) (linkservice.AccountsResult, error)
	ListAccountsFunc    func(ctx context.Context, userID rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error)
}

var _ linkservice.Service = (*FakeLinkService)(nil)

func (f *FakeLinkService) LinkAccount(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag, name string) (linkservice.AccountResult, error) {
	if f.LinkAccountFunc != nil {
		return f.LinkAccountFunc(ctx, userID, tag, name)
	}
	return linkservice.AccountResult{}, nil
}

func (f *FakeLinkService) UnlinkAccount(ctx context.Context, userID rolesyncdomain.UserID, tag rolesyncdomain.PlayerTag) (linkservice.AccountResult, error) {
	if f.UnlinkAccountFunc != nil {
		return f.UnlinkAccountFunc(ctx, userID, tag)
	}
	return linkservice.AccountResult{}, nil
}

func (f *FakeLinkService) VerifyAccount(ctx context.Context, tag rolesyncdomain.PlayerTag, verified bool) (linkservice.AccountResult, error) {
	if f.VerifyAccountFunc != nil {
		return f.VerifyAccountFunc(ctx, tag, verified)
	}
	return linkservice.AccountResult{}, nil
}

func (f *FakeLinkService) ReorderAccounts(ctx context.Context, userID rolesyncdomain.UserID, tags []rolesyncdomain.PlayerTag) (linkservice.AccountsResult, error) {
	if f.ReorderAccountsFunc != nil {
		return f.ReorderAccountsFunc(ctx, userID, tags)
	}
	return linkservice.AccountsResult{}, nil
}

func (f *FakeLinkService) ListAccounts(ctx context.Context, userID rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error) {
	if f.ListAccountsFunc != nil {
		return f.ListAccountsFunc(ctx, userID)
	}
	return nil, nil
}

func (f *FakeLinkService) FindByUserIDs(context.Context, []rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error) {
	return nil, nil
}

func (f *FakeLinkService) FindByGameTags(context.Context, []rolesyncdomain.PlayerTag) ([]rolesyncdomain.LinkedAccount, error) {
	return nil, nil
}

// FakeDirectory serves a fixed guild state.
type FakeDirectory struct {
	State rolesyncdomain.GuildState
	Err   error
}

var _ rolesyncservice.MemberDirectory = (*FakeDirectory)(nil)

func (f *FakeDirectory) Guild(context.Context, rolesyncdomain.GuildID) (rolesyncdomain.GuildState, error) {
	return f.State, f.Err
}

func (f *FakeDirectory) Members(context.Context, rolesyncdomain.GuildID) ([]rolesyncdomain.Member, error) {
	return nil, f.Err
}

func (f *FakeDirectory) Member(context.Context, rolesyncdomain.GuildID, rolesyncdomain.UserID) (rolesyncdomain.Member, error) {
	return rolesyncdomain.Member{}, f.Err
}

func (f *FakeDirectory) EditMember(context.Context, rolesyncdomain.GuildID, rolesyncdomain.UserID, rolesyncservice.MemberEdit) error {
	return f.Err
}

// FakePublisher records published messages.
type FakePublisher struct {
	mu       sync.Mutex
	Messages []*message.Message
	Err      error
}

func (p *FakePublisher) Publish(_ string, msgs ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Messages = append(p.Messages, msgs...)
	return nil
}

func (p *FakePublisher) Close() error { return nil }

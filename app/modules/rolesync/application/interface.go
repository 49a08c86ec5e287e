package rolesyncservice

import (
	"context"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
)

// MemberEdit is a partial member update. A nil field is left untouched; an
// empty Nick clears the nickname.
type MemberEdit struct {
	Roles []rolesyncdomain.RoleID
	Nick  *string
}

// MemberDirectory is the chat platform view of a guild.
//
// Error semantics: ErrForbidden, ErrNotFound and *RateLimitedError, possibly
// wrapped; anything else is an infrastructure failure.
type MemberDirectory interface {
	Guild(ctx context.Context, guildID rolesyncdomain.GuildID) (rolesyncdomain.GuildState, error)
	Members(ctx context.Context, guildID rolesyncdomain.GuildID) ([]rolesyncdomain.Member, error)
	Member(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID) (rolesyncdomain.Member, error)
	EditMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, edit MemberEdit) error
}

// PlayerSource is the game data API.
type PlayerSource interface {
	// Players returns the snapshots it could resolve and the tags the API does
	// not know. A non-nil error means the whole lookup failed.
	Players(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.PlayerSnapshot, []rolesyncdomain.PlayerTag, error)
	CurrentWar(ctx context.Context, clanTag rolesyncdomain.ClanTag) (rolesyncdomain.WarState, error)
}

// LinkStore reads identity to game account links.
type LinkStore interface {
	FindByUserIDs(ctx context.Context, userIDs []rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error)
	// FindByGameTags also returns every sibling account owned by the identities
	// that own tags.
	FindByGameTags(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.LinkedAccount, error)
}

// ConfigResolver builds guild configuration snapshots.
type ConfigResolver interface {
	Resolve(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error)
	GuildsForClan(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]rolesyncdomain.GuildID, error)
	ConfiguredGuilds(ctx context.Context) ([]rolesyncdomain.GuildID, error)
}

// Gate prevents overlapping runs per guild and trigger class.
type Gate interface {
	TryAdmit(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error)
	// Cooling reports whether a refused key belongs to a finished run.
	Cooling(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error)
	// Release frees the key once after has elapsed.
	Release(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger, after time.Duration) error
}

// Pacer throttles member edits per guild.
type Pacer interface {
	Wait(ctx context.Context, guildID rolesyncdomain.GuildID) error
}

// Metrics is implemented by the prometheus recorder in app/observability.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation, service string)
	RecordOperationSuccess(ctx context.Context, operation, service string)
	RecordOperationFailure(ctx context.Context, operation, service string)
	RecordOperationDuration(ctx context.Context, operation, service string, duration time.Duration)
	RecordMemberEdit(ctx context.Context, outcome string)
	RecordGateDrop(ctx context.Context, trigger string)
}

// RunResult is the outcome of one gated reconciliation.
type RunResult = results.OperationResult[RunSummary, SkipNotice]

// Service defines the reconciliation entry points.
type Service interface {
	ReconcileGuild(ctx context.Context, guildID rolesyncdomain.GuildID, opts RunOptions) (RunResult, error)
	ReconcileMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, dryRun bool) (RunResult, error)
	HandleWarStateChanged(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]RunResult, error)
	HandleClanMembersChanged(ctx context.Context, clanTag rolesyncdomain.ClanTag, playerTags []rolesyncdomain.PlayerTag) ([]RunResult, error)
	HandleLinkChanged(ctx context.Context, userID rolesyncdomain.UserID) ([]RunResult, error)
	CurrentRun(guildID rolesyncdomain.GuildID) (*Run, bool)
	LatestRun(guildID rolesyncdomain.GuildID) (*Run, bool)
	ClearRun(guildID rolesyncdomain.GuildID) bool
}

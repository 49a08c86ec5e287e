package rolesynchandlers

import (
	"context"

	clashevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/clash"
	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
)

// Handlers defines the contract for rolesync event handlers.
type Handlers interface {
	HandleGuildReconcileRequested(ctx context.Context, payload *rolesyncevents.GuildReconcileRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleMemberReconcileRequested(ctx context.Context, payload *rolesyncevents.MemberReconcileRequestedPayloadV1) ([]handlerwrapper.Result, error)
	HandleClanWarStateChanged(ctx context.Context, payload *clashevents.ClanWarStateChangedPayloadV1) ([]handlerwrapper.Result, error)
	HandleClanMembersChanged(ctx context.Context, payload *clashevents.ClanMembersChangedPayloadV1) ([]handlerwrapper.Result, error)
	HandleLinkAccountChanged(ctx context.Context, payload *linkevents.AccountChangedPayloadV1) ([]handlerwrapper.Result, error)
}

package rolesynchandlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	clashevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/clash"
	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
)

var errNilPayload = errors.New("payload cannot be nil")

// bulkTrigger maps a requested trigger onto a gated class. LINK and unknown
// values run as MANUAL so they cannot open a trigger class of their own.
func bulkTrigger(raw string) rolesyncdomain.Trigger {
	switch t := rolesyncdomain.Trigger(strings.ToUpper(strings.TrimSpace(raw))); t {
	case rolesyncdomain.TriggerPoll, rolesyncdomain.TriggerWar, rolesyncdomain.TriggerFeed, rolesyncdomain.TriggerManual:
		return t
	default:
		return rolesyncdomain.TriggerManual
	}
}

// HandleGuildReconcileRequested runs a bulk reconciliation for the guild.
func (h *RolesyncHandlers) HandleGuildReconcileRequested(ctx context.Context, payload *rolesyncevents.GuildReconcileRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	if payload.GuildID == "" {
		h.logger.WarnContext(ctx, "Ignoring reconcile request without guild id")
		return nil, nil
	}

	result, err := h.service.ReconcileGuild(ctx, rolesyncdomain.GuildID(payload.GuildID), rolesyncservice.RunOptions{
		Trigger: bulkTrigger(payload.Trigger),
		DryRun:  payload.DryRun,
		Logging: payload.Logging,
	})
	if err != nil {
		return nil, err
	}
	return mapRunResult(result), nil
}

// HandleMemberReconcileRequested reconciles a single member.
func (h *RolesyncHandlers) HandleMemberReconcileRequested(ctx context.Context, payload *rolesyncevents.MemberReconcileRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	if payload.GuildID == "" || payload.UserID == "" {
		h.logger.WarnContext(ctx, "Ignoring member reconcile request without ids",
			slog.String("guild_id", payload.GuildID),
			slog.String("user_id", payload.UserID),
		)
		return nil, nil
	}

	result, err := h.service.ReconcileMember(ctx,
		rolesyncdomain.GuildID(payload.GuildID),
		rolesyncdomain.UserID(payload.UserID),
		payload.DryRun,
	)
	if err != nil {
		return nil, err
	}
	return mapRunResult(result), nil
}

// HandleClanWarStateChanged starts a WAR run in every guild linking the clan.
func (h *RolesyncHandlers) HandleClanWarStateChanged(ctx context.Context, payload *clashevents.ClanWarStateChangedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	tag := rolesyncdomain.NormalizeTag(payload.ClanTag)
	if tag == "" {
		return nil, nil
	}

	results, err := h.service.HandleWarStateChanged(ctx, rolesyncdomain.ClanTag(tag))
	if err != nil {
		return nil, err
	}
	return mapRunResults(results), nil
}

// HandleClanMembersChanged reconciles the owners of the changed accounts.
func (h *RolesyncHandlers) HandleClanMembersChanged(ctx context.Context, payload *clashevents.ClanMembersChangedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	tag := rolesyncdomain.NormalizeTag(payload.ClanTag)
	if tag == "" || len(payload.PlayerTags) == 0 {
		return nil, nil
	}

	players := make([]rolesyncdomain.PlayerTag, len(payload.PlayerTags))
	for i, p := range payload.PlayerTags {
		players[i] = rolesyncdomain.PlayerTag(p)
	}

	results, err := h.service.HandleClanMembersChanged(ctx, rolesyncdomain.ClanTag(tag), players)
	if err != nil {
		return nil, err
	}
	return mapRunResults(results), nil
}

// HandleLinkAccountChanged reconciles the user whose links changed.
func (h *RolesyncHandlers) HandleLinkAccountChanged(ctx context.Context, payload *linkevents.AccountChangedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errNilPayload
	}
	if payload.UserID == "" {
		return nil, nil
	}

	results, err := h.service.HandleLinkChanged(ctx, rolesyncdomain.UserID(payload.UserID))
	if err != nil {
		return nil, err
	}
	return mapRunResults(results), nil
}

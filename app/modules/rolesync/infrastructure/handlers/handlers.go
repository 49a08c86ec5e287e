package rolesynchandlers

import (
	"log/slog"

	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
)

// RolesyncHandlers implements the Handlers interface for rolesync events.
type RolesyncHandlers struct {
	service rolesyncservice.Service
	logger  *slog.Logger
}

var _ Handlers = (*RolesyncHandlers)(nil)

// NewRolesyncHandlers creates a new RolesyncHandlers instance.
func NewRolesyncHandlers(service rolesyncservice.Service, logger *slog.Logger) *RolesyncHandlers {
	return &RolesyncHandlers{
		service: service,
		logger:  logger,
	}
}

// mapRunResult converts a run outcome to the completed or skipped event.
func mapRunResult(result rolesyncservice.RunResult) []handlerwrapper.Result {
	switch {
	case result.Success != nil:
		s := result.Success
		return []handlerwrapper.Result{{
			Topic:    rolesyncevents.GuildReconcileCompletedV1,
			Payload:  CompletedPayload(*s),
			Metadata: map[string]string{"guild_id": string(s.GuildID)},
		}}
	case result.Failure != nil:
		f := result.Failure
		return []handlerwrapper.Result{{
			Topic: rolesyncevents.GuildReconcileSkippedV1,
			Payload: rolesyncevents.GuildReconcileSkippedPayloadV1{
				GuildID: string(f.GuildID),
				Trigger: string(f.Trigger),
				Reason:  f.Reason,
			},
			Metadata: map[string]string{"guild_id": string(f.GuildID)},
		}}
	}
	return nil
}

func mapRunResults(results []rolesyncservice.RunResult) []handlerwrapper.Result {
	var out []handlerwrapper.Result
	for _, r := range results {
		out = append(out, mapRunResult(r)...)
	}
	return out
}

// CompletedPayload converts a run summary to its event form.
func CompletedPayload(s rolesyncservice.RunSummary) rolesyncevents.GuildReconcileCompletedPayloadV1 {
	changes := make([]rolesyncevents.MemberChangeV1, 0, len(s.Changes))
	for _, c := range s.Changes {
		changes = append(changes, rolesyncevents.MemberChangeV1{
			UserID:      string(c.UserID),
			DisplayName: c.DisplayName,
			Included:    roleStrings(c.Included),
			Excluded:    roleStrings(c.Excluded),
			Nickname:    c.Nickname,
		})
	}
	skipped := make([]rolesyncevents.MemberSkipV1, 0, len(s.Skipped))
	for _, sk := range s.Skipped {
		skipped = append(skipped, rolesyncevents.MemberSkipV1{UserID: string(sk.UserID), Reason: sk.Reason})
	}
	return rolesyncevents.GuildReconcileCompletedPayloadV1{
		RunID:       s.ID.String(),
		GuildID:     string(s.GuildID),
		Trigger:     string(s.Trigger),
		DryRun:      s.DryRun,
		MemberCount: s.MemberCount,
		Updated:     s.Updated(),
		Changes:     changes,
		Skipped:     skipped,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
	}
}

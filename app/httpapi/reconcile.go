package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	rolesyncevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/rolesync"
	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/handlerwrapper"
	wmmiddleware "github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type reconcileRequest struct {
	DryRun     bool     `json:"dry_run"`
	UserIDs    []string `json:"user_ids,omitempty"`
	PlayerTags []string `json:"player_tags,omitempty"`
}

type acceptedResponse struct {
	GuildID       string `json:"guild_id"`
	CorrelationID string `json:"correlation_id"`
}

type skippedResponse struct {
	Skipped rolesyncservice.SkipNotice `json:"skipped"`
}

// handleReconcileGuild queues a manual run, or runs it inline with ?wait=true.
// Scoped runs (user_ids or player_tags) always run inline since the request
// event carries only the guild.
func (a *api) handleReconcileGuild(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req reconcileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if !wait && len(req.UserIDs) == 0 && len(req.PlayerTags) == 0 {
		a.queueReconcile(w, r, guildID, req.DryRun)
		return
	}

	opts := rolesyncservice.RunOptions{
		Trigger: rolesyncdomain.TriggerManual,
		DryRun:  req.DryRun,
		Logging: true,
	}
	for _, id := range req.UserIDs {
		opts.UserIDs = append(opts.UserIDs, rolesyncdomain.UserID(id))
	}
	for _, tag := range req.PlayerTags {
		opts.PlayerTags = append(opts.PlayerTags, rolesyncdomain.PlayerTag(rolesyncdomain.NormalizeTag(tag)))
	}

	result, err := a.Rolesync.ReconcileGuild(r.Context(), rolesyncdomain.GuildID(guildID), opts)
	if err != nil {
		a.internalError(w, r, "reconcile failed", err)
		return
	}
	writeRunResult(w, result)
}

func (a *api) queueReconcile(w http.ResponseWriter, r *http.Request, guildID string, dryRun bool) {
	correlationID := middleware.GetReqID(r.Context())
	msg, err := handlerwrapper.NewMessage(handlerwrapper.Result{
		Topic: rolesyncevents.GuildReconcileRequestedV1,
		Payload: rolesyncevents.GuildReconcileRequestedPayloadV1{
			GuildID: guildID,
			Trigger: string(rolesyncdomain.TriggerManual),
			DryRun:  dryRun,
			Logging: true,
		},
		Metadata: map[string]string{"guild_id": guildID},
	}, correlationID)
	if err != nil {
		a.internalError(w, r, "encode request", err)
		return
	}
	if err := a.Publisher.Publish("", msg); err != nil {
		a.internalError(w, r, "queue reconcile", err)
		return
	}

	a.Logger.InfoContext(r.Context(), "Queued guild reconcile",
		slog.String("guild_id", guildID),
		slog.String("subject", Subject(r.Context())),
		slog.Bool("dry_run", dryRun),
	)
	writeJSON(w, http.StatusAccepted, acceptedResponse{
		GuildID:       guildID,
		CorrelationID: wmmiddleware.MessageCorrelationID(msg),
	})
}

func (a *api) handleReconcileMember(w http.ResponseWriter, r *http.Request) {
	guildID := rolesyncdomain.GuildID(chi.URLParam(r, "guildID"))
	userID := rolesyncdomain.UserID(chi.URLParam(r, "userID"))

	var req reconcileRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := a.Rolesync.ReconcileMember(r.Context(), guildID, userID, req.DryRun)
	if err != nil {
		a.internalError(w, r, "reconcile failed", err)
		return
	}
	writeRunResult(w, result)
}

func writeRunResult(w http.ResponseWriter, result rolesyncservice.RunResult) {
	switch {
	case result.Success != nil:
		writeJSON(w, http.StatusOK, result.Success)
	case result.Failure != nil:
		writeJSON(w, http.StatusConflict, skippedResponse{Skipped: *result.Failure})
	default:
		writeError(w, http.StatusInternalServerError, "empty result")
	}
}

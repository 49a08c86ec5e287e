package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	guildservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
	"github.com/go-chi/chi/v5"
)

// maxSettingBytes bounds a single setting value.
const maxSettingBytes = 64 << 10

func (a *api) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	roles, err := a.Guilds.Resolve(r.Context(), rolesyncdomain.GuildID(chi.URLParam(r, "guildID")))
	if err != nil {
		a.internalError(w, r, "resolve config", err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (a *api) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSettingBytes+1))
	if err != nil || len(raw) > maxSettingBytes || !json.Valid(raw) {
		writeError(w, http.StatusBadRequest, "setting value must be a JSON document")
		return
	}
	result, err := a.Guilds.SetSetting(r.Context(), rolesyncdomain.GuildID(chi.URLParam(r, "guildID")), chi.URLParam(r, "key"), raw)
	if err != nil {
		a.internalError(w, r, "save setting", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

func (a *api) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	result, err := a.Guilds.DeleteSetting(r.Context(), rolesyncdomain.GuildID(chi.URLParam(r, "guildID")), chi.URLParam(r, "key"))
	if err != nil {
		a.internalError(w, r, "delete setting", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

func (a *api) handleListClans(w http.ResponseWriter, r *http.Request) {
	clans, err := a.Guilds.ListClans(r.Context(), rolesyncdomain.GuildID(chi.URLParam(r, "guildID")))
	if err != nil {
		a.internalError(w, r, "list clans", err)
		return
	}
	if clans == nil {
		clans = []guildservice.ClanLink{}
	}
	writeJSON(w, http.StatusOK, clans)
}

func (a *api) handlePutClan(w http.ResponseWriter, r *http.Request) {
	var clan guildservice.ClanLink
	if err := decodeBody(r, &clan); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	clan.ClanTag = rolesyncdomain.ClanTag(tagParam(r, "clanTag"))

	result, err := a.Guilds.LinkClan(r.Context(), rolesyncdomain.GuildID(chi.URLParam(r, "guildID")), clan)
	if err != nil {
		a.internalError(w, r, "link clan", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

func (a *api) handleDeleteClan(w http.ResponseWriter, r *http.Request) {
	result, err := a.Guilds.UnlinkClan(r.Context(),
		rolesyncdomain.GuildID(chi.URLParam(r, "guildID")),
		rolesyncdomain.ClanTag(tagParam(r, "clanTag")),
	)
	if err != nil {
		a.internalError(w, r, "unlink clan", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

// writeValidated writes the success payload, or the validation failure as 422.
func writeValidated[S any](w http.ResponseWriter, result results.OperationResult[S, error], status int) {
	switch {
	case result.Success != nil:
		writeJSON(w, status, result.Success)
	case result.Failure != nil:
		writeError(w, http.StatusUnprocessableEntity, (*result.Failure).Error())
	default:
		writeError(w, http.StatusInternalServerError, "empty result")
	}
}

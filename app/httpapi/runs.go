package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	rolesyncreport "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/infrastructure/report"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (a *api) handleCurrentRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.Rolesync.CurrentRun(rolesyncdomain.GuildID(chi.URLParam(r, "guildID")))
	if !ok {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	writeJSON(w, http.StatusOK, run.Summary())
}

func (a *api) handleClearRun(w http.ResponseWriter, r *http.Request) {
	if !a.Rolesync.ClearRun(rolesyncdomain.GuildID(chi.URLParam(r, "guildID"))) {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLatestRun returns the run in progress or, once it has finished, the
// guild's last logged run.
func (a *api) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.Rolesync.LatestRun(rolesyncdomain.GuildID(chi.URLParam(r, "guildID")))
	if !ok {
		writeError(w, http.StatusNotFound, "no logged run")
		return
	}
	writeJSON(w, http.StatusOK, run.Summary())
}

// handleCurrentRunReport only serves a run still in progress; the latest
// report also covers finished runs.
func (a *api) handleCurrentRunReport(w http.ResponseWriter, r *http.Request) {
	guildID := rolesyncdomain.GuildID(chi.URLParam(r, "guildID"))
	run, ok := a.Rolesync.CurrentRun(guildID)
	if !ok {
		writeError(w, http.StatusNotFound, "no run in progress")
		return
	}
	a.writeReport(w, r, guildID, run.Summary())
}

func (a *api) handleLatestRunReport(w http.ResponseWriter, r *http.Request) {
	guildID := rolesyncdomain.GuildID(chi.URLParam(r, "guildID"))
	run, ok := a.Rolesync.LatestRun(guildID)
	if !ok {
		writeError(w, http.StatusNotFound, "no logged run")
		return
	}
	a.writeReport(w, r, guildID, run.Summary())
}

func (a *api) writeReport(w http.ResponseWriter, r *http.Request, guildID rolesyncdomain.GuildID, summary rolesyncservice.RunSummary) {
	var names rolesyncreport.RoleNames
	if a.Directory != nil {
		state, err := a.Directory.Guild(r.Context(), guildID)
		if err != nil {
			a.Logger.WarnContext(r.Context(), "Report without role names",
				slog.String("guild_id", string(guildID)),
				slog.Any("error", err),
			)
		} else {
			names = make(rolesyncreport.RoleNames, len(state.Roles))
			for id, role := range state.Roles {
				names[id] = role.Name
			}
		}
	}

	body, err := rolesyncreport.Build(summary, names)
	if err != nil {
		a.internalError(w, r, "build report", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="rolesync-%s.xlsx"`, summary.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

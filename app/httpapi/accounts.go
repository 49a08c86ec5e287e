package httpapi

import (
	"net/http"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/go-chi/chi/v5"
)

type linkRequest struct {
	Name string `json:"name"`
}

type reorderRequest struct {
	Tags []string `json:"tags"`
}

type verifyRequest struct {
	Verified bool `json:"verified"`
}

func (a *api) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.Links.ListAccounts(r.Context(), rolesyncdomain.UserID(chi.URLParam(r, "userID")))
	if err != nil {
		a.internalError(w, r, "list accounts", err)
		return
	}
	if accounts == nil {
		accounts = []rolesyncdomain.LinkedAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *api) handleReorderAccounts(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	tags := make([]rolesyncdomain.PlayerTag, len(req.Tags))
	for i, t := range req.Tags {
		tags[i] = rolesyncdomain.PlayerTag(t)
	}

	result, err := a.Links.ReorderAccounts(r.Context(), rolesyncdomain.UserID(chi.URLParam(r, "userID")), tags)
	if err != nil {
		a.internalError(w, r, "reorder accounts", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

func (a *api) handleLinkAccount(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := a.Links.LinkAccount(r.Context(),
		rolesyncdomain.UserID(chi.URLParam(r, "userID")),
		rolesyncdomain.PlayerTag(tagParam(r, "tag")),
		req.Name,
	)
	if err != nil {
		a.internalError(w, r, "link account", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

func (a *api) handleUnlinkAccount(w http.ResponseWriter, r *http.Request) {
	result, err := a.Links.UnlinkAccount(r.Context(),
		rolesyncdomain.UserID(chi.URLParam(r, "userID")),
		rolesyncdomain.PlayerTag(tagParam(r, "tag")),
	)
	if err != nil {
		a.internalError(w, r, "unlink account", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

func (a *api) handleVerifyAccount(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := a.Links.VerifyAccount(r.Context(), rolesyncdomain.PlayerTag(tagParam(r, "tag")), req.Verified)
	if err != nil {
		a.internalError(w, r, "verify account", err)
		return
	}
	writeValidated(w, result, http.StatusOK)
}

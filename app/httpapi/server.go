// Package httpapi serves the admin API used to trigger and inspect
// reconciliations and to edit guild configuration and account links.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	guildservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/application"
	linkservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Rolesync rolesyncservice.Service
	Guilds   guildservice.Service
	Links    linkservice.Service
	// Directory resolves role names for reports. Optional.
	Directory rolesyncservice.MemberDirectory
	// Publisher must route on the message topic metadata.
	Publisher message.Publisher
	Gatherer  prometheus.Gatherer
	// Checks are reported by /healthz, keyed by component.
	Checks    map[string]func(context.Context) error
	JWTSecret string
	Logger    *slog.Logger
	Tracer    trace.Tracer
}

type api struct {
	Deps
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	a := &api{Deps: deps}
	limiter := NewIPRateLimiter(rate.Limit(10), 20)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(RateLimitMiddleware(limiter))
		r.Use(AuthMiddleware([]byte(deps.JWTSecret)))
		r.Use(a.traceMiddleware)

		r.Route("/guilds/{guildID}", func(r chi.Router) {
			r.Post("/reconcile", a.handleReconcileGuild)
			r.Post("/members/{userID}/reconcile", a.handleReconcileMember)

			r.Get("/runs/current", a.handleCurrentRun)
			r.Delete("/runs/current", a.handleClearRun)
			r.Get("/runs/current/report.xlsx", a.handleCurrentRunReport)
			r.Get("/runs/latest", a.handleLatestRun)
			r.Get("/runs/latest/report.xlsx", a.handleLatestRunReport)

			r.Get("/config", a.handleGetConfig)
			r.Put("/settings/{key}", a.handlePutSetting)
			r.Delete("/settings/{key}", a.handleDeleteSetting)

			r.Get("/clans", a.handleListClans)
			r.Put("/clans/{clanTag}", a.handlePutClan)
			r.Delete("/clans/{clanTag}", a.handleDeleteClan)
		})

		r.Route("/users/{userID}/accounts", func(r chi.Router) {
			r.Get("/", a.handleListAccounts)
			r.Put("/", a.handleReorderAccounts)
			r.Put("/{tag}", a.handleLinkAccount)
			r.Delete("/{tag}", a.handleUnlinkAccount)
		})
		r.Put("/accounts/{tag}/verified", a.handleVerifyAccount)
	})
	return r
}

func (a *api) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Tracer == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx, span := a.Tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Components: map[string]string{}}
	status := http.StatusOK
	for name, check := range a.Checks {
		if err := check(ctx); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	writeJSON(w, status, resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (a *api) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.Logger.ErrorContext(r.Context(), msg,
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	writeError(w, http.StatusInternalServerError, msg)
}

// tagParam reads a game tag from the path. Tags arrive escaped ("%23ABC"),
// so chi's raw value is unescaped first.
func tagParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return rolesyncdomain.NormalizeTag(raw)
}

package rolesyncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/shared/results"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "RolesyncService"

// Skip reasons surfaced to callers.
const (
	ReasonInProgress   = "run already in progress"
	ReasonCoolingDown  = "cooling down"
	ReasonNoCandidates = "no candidates"
)

// DefaultMaxRunTime bounds a run when no limit is configured.
const DefaultMaxRunTime = 2 * time.Hour

// SkipNotice explains why a reconciliation did not run.
type SkipNotice struct {
	GuildID rolesyncdomain.GuildID `json:"guild_id"`
	Trigger rolesyncdomain.Trigger `json:"trigger"`
	Reason  string                 `json:"reason"`
}

// RolesyncService implements the Service interface.
type RolesyncService struct {
	reconciler *Reconciler
	configs    ConfigResolver
	gate       Gate
	cooldown   time.Duration
	maxRunTime time.Duration
	logger     *slog.Logger
	metrics    Metrics
	tracer     trace.Tracer

	stopping chan struct{}
	stopOnce sync.Once
}

var _ Service = (*RolesyncService)(nil)

// NewRolesyncService creates a new RolesyncService. cooldown is how long a
// finished event-driven run keeps its dedup key; maxRunTime bounds every run.
func NewRolesyncService(
	reconciler *Reconciler,
	configs ConfigResolver,
	gate Gate,
	cooldown time.Duration,
	maxRunTime time.Duration,
	logger *slog.Logger,
	metrics Metrics,
	tracer trace.Tracer,
) *RolesyncService {
	return &RolesyncService{
		reconciler: reconciler,
		configs:    configs,
		gate:       gate,
		cooldown:   cooldown,
		maxRunTime: maxRunTime,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		stopping:   make(chan struct{}),
	}
}

// Stop cancels runs in flight. It is called once on shutdown.
func (s *RolesyncService) Stop() {
	s.stopOnce.Do(func() { close(s.stopping) })
}

// ReconcileGuild runs a bulk reconciliation. Gated trigger classes are dropped
// while a run of the same class for the guild is in progress or cooling down.
// MANUAL runs release their key as soon as they finish.
func (s *RolesyncService) ReconcileGuild(ctx context.Context, guildID rolesyncdomain.GuildID, opts RunOptions) (RunResult, error) {
	if opts.Trigger == "" {
		opts.Trigger = rolesyncdomain.TriggerManual
	}
	return withTelemetry(s, ctx, "ReconcileGuild", guildID, func(ctx context.Context) (RunResult, error) {
		if opts.Trigger.Gated() {
			admitted, err := s.gate.TryAdmit(ctx, guildID, opts.Trigger)
			if err != nil {
				return RunResult{}, fmt.Errorf("admit run: %w", err)
			}
			if !admitted {
				s.metrics.RecordGateDrop(ctx, string(opts.Trigger))
				return results.FailureResult[RunSummary](SkipNotice{
					GuildID: guildID, Trigger: opts.Trigger, Reason: s.refusal(ctx, guildID, opts.Trigger),
				}), nil
			}
			cooldown := s.cooldown
			if opts.Trigger == rolesyncdomain.TriggerManual {
				cooldown = 0
			}
			defer func() {
				if err := s.gate.Release(context.WithoutCancel(ctx), guildID, opts.Trigger, cooldown); err != nil {
					s.logger.ErrorContext(ctx, "Failed to release dedup key",
						slog.String("guild_id", string(guildID)),
						slog.String("trigger", string(opts.Trigger)),
						slog.Any("error", err),
					)
				}
			}()
		}
		return s.run(ctx, guildID, opts)
	})
}

// ReconcileMember reconciles one member. Incremental runs are never gated.
func (s *RolesyncService) ReconcileMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, dryRun bool) (RunResult, error) {
	return withTelemetry(s, ctx, "ReconcileMember", guildID, func(ctx context.Context) (RunResult, error) {
		return s.run(ctx, guildID, RunOptions{
			Trigger: rolesyncdomain.TriggerLink,
			DryRun:  dryRun,
			UserIDs: []rolesyncdomain.UserID{userID},
		})
	})
}

// refusal names why the gate refused a run.
func (s *RolesyncService) refusal(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) string {
	cooling, err := s.gate.Cooling(ctx, guildID, trigger)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read dedup key state",
			slog.String("guild_id", string(guildID)),
			slog.Any("error", err),
		)
		return ReasonInProgress
	}
	if cooling {
		return ReasonCoolingDown
	}
	return ReasonInProgress
}

// runContext detaches a run from the caller. Message deliveries and HTTP
// requests end long before a paced bulk run does; the run only stops at
// maxRunTime or on Stop.
func (s *RolesyncService) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	limit := s.maxRunTime
	if limit <= 0 {
		limit = DefaultMaxRunTime
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
	go func() {
		select {
		case <-s.stopping:
			cancel()
		case <-runCtx.Done():
		}
	}()
	return runCtx, cancel
}

func (s *RolesyncService) run(ctx context.Context, guildID rolesyncdomain.GuildID, opts RunOptions) (RunResult, error) {
	skip := func(reason string) RunResult {
		return results.FailureResult[RunSummary](SkipNotice{GuildID: guildID, Trigger: opts.Trigger, Reason: reason})
	}

	runCtx, cancel := s.runContext(ctx)
	defer cancel()

	run, err := s.reconciler.Reconcile(runCtx, guildID, opts)
	switch {
	case errors.Is(err, ErrConfigurationAbsent), errors.Is(err, ErrPermissionInsufficient):
		return skip(err.Error()), nil
	case err != nil:
		return RunResult{}, err
	case run == nil:
		return skip(ReasonNoCandidates), nil
	}
	return results.SuccessResult[RunSummary, SkipNotice](run.Summary()), nil
}

// HandleWarStateChanged reconciles every guild that links the clan.
func (s *RolesyncService) HandleWarStateChanged(ctx context.Context, clanTag rolesyncdomain.ClanTag) ([]RunResult, error) {
	return s.fanOut(ctx, clanTag, RunOptions{Trigger: rolesyncdomain.TriggerWar})
}

// HandleClanMembersChanged reconciles the owners of the changed accounts in
// every guild that links the clan.
func (s *RolesyncService) HandleClanMembersChanged(ctx context.Context, clanTag rolesyncdomain.ClanTag, playerTags []rolesyncdomain.PlayerTag) ([]RunResult, error) {
	tags := make([]rolesyncdomain.PlayerTag, 0, len(playerTags))
	for _, t := range playerTags {
		if n := rolesyncdomain.NormalizeTag(string(t)); n != "" {
			tags = append(tags, rolesyncdomain.PlayerTag(n))
		}
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return s.fanOut(ctx, clanTag, RunOptions{Trigger: rolesyncdomain.TriggerFeed, PlayerTags: tags})
}

func (s *RolesyncService) fanOut(ctx context.Context, clanTag rolesyncdomain.ClanTag, opts RunOptions) ([]RunResult, error) {
	guilds, err := s.configs.GuildsForClan(ctx, clanTag)
	if err != nil {
		return nil, fmt.Errorf("guilds for clan %s: %w", clanTag, err)
	}
	var (
		out  []RunResult
		errs []error
	)
	for _, guildID := range guilds {
		res, err := s.ReconcileGuild(ctx, guildID, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}

// HandleLinkChanged reconciles the user in every configured guild.
func (s *RolesyncService) HandleLinkChanged(ctx context.Context, userID rolesyncdomain.UserID) ([]RunResult, error) {
	guilds, err := s.configs.ConfiguredGuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("configured guilds: %w", err)
	}
	var (
		out  []RunResult
		errs []error
	)
	for _, guildID := range guilds {
		res, err := s.ReconcileMember(ctx, guildID, userID, false)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}

func (s *RolesyncService) CurrentRun(guildID rolesyncdomain.GuildID) (*Run, bool) {
	return s.reconciler.Runs().Current(guildID)
}

// LatestRun returns the run in progress or the last finished logged run.
func (s *RolesyncService) LatestRun(guildID rolesyncdomain.GuildID) (*Run, bool) {
	return s.reconciler.Runs().Latest(guildID)
}

func (s *RolesyncService) ClearRun(guildID rolesyncdomain.GuildID) bool {
	return s.reconciler.Runs().Clear(guildID)
}

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S, F any](
	s *RolesyncService,
	ctx context.Context,
	operationName string,
	guildID rolesyncdomain.GuildID,
	op func(ctx context.Context) (results.OperationResult[S, F], error),
) (result results.OperationResult[S, F], err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("guild_id", string(guildID)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("guild_id", string(guildID)),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("guild_id", string(guildID)),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.Failure != nil {
		s.logger.InfoContext(ctx, "Operation skipped",
			slog.String("operation", operationName),
			slog.String("guild_id", string(guildID)),
			slog.Any("failure_payload", result.Failure),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

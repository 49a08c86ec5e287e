package rolesyncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// RunOptions selects what a reconciliation covers. With neither UserIDs nor
// PlayerTags set every guild member is considered.
type RunOptions struct {
	Trigger rolesyncdomain.Trigger
	DryRun  bool
	// Logging publishes the run in the RunRegistry while it executes.
	Logging    bool
	UserIDs    []rolesyncdomain.UserID
	PlayerTags []rolesyncdomain.PlayerTag
	// MaxCandidates caps the run. Zero falls back to the reconciler default.
	MaxCandidates int
}

// ReconcilerConfig holds the reconciler's limits.
type ReconcilerConfig struct {
	CallTimeout   time.Duration
	MaxCandidates int
}

// Reconciler applies role and nickname decisions to a guild's members.
type Reconciler struct {
	directory MemberDirectory
	players   PlayerSource
	links     LinkStore
	configs   ConfigResolver
	pacer     Pacer
	wars      *WarRoleLookup
	runs      *RunRegistry
	metrics   Metrics
	logger    *slog.Logger
	cfg       ReconcilerConfig
}

func NewReconciler(
	directory MemberDirectory,
	players PlayerSource,
	links LinkStore,
	configs ConfigResolver,
	pacer Pacer,
	metrics Metrics,
	logger *slog.Logger,
	cfg ReconcilerConfig,
) *Reconciler {
	return &Reconciler{
		directory: directory,
		players:   players,
		links:     links,
		configs:   configs,
		pacer:     pacer,
		wars:      NewWarRoleLookup(players, logger, cfg.CallTimeout),
		runs:      NewRunRegistry(),
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Runs exposes the registry of runs started with logging.
func (r *Reconciler) Runs() *RunRegistry { return r.runs }

// Reconcile processes every candidate of the guild sequentially. It returns a
// nil run when there are no candidates. Per-member failures are recorded as
// skips and never abort the run.
func (r *Reconciler) Reconcile(ctx context.Context, guildID rolesyncdomain.GuildID, opts RunOptions) (*Run, error) {
	cfg, err := r.configs.Resolve(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("resolve guild config: %w", err)
	}
	if cfg.IsEmpty() {
		return nil, ErrConfigurationAbsent
	}

	guild, err := callWithTimeout(ctx, r.cfg.CallTimeout, func(ctx context.Context) (rolesyncdomain.GuildState, error) {
		return r.directory.Guild(ctx, guildID)
	})
	if err != nil {
		return nil, fmt.Errorf("load guild: %w", err)
	}

	canRoles := guild.CanManage(rolesyncdomain.ManageRoles)
	canNicks := cfg.Nicknames.Enabled && guild.CanManage(rolesyncdomain.ManageNicknames)
	if !canRoles && !canNicks {
		return nil, ErrPermissionInsufficient
	}
	if !canRoles {
		r.logger.WarnContext(ctx, "Bot cannot manage roles, reconciling nicknames only",
			slog.String("guild_id", string(guildID)))
	}

	members, links, err := r.loadMembers(ctx, guildID, opts)
	if err != nil {
		return nil, err
	}

	candidates := selectCandidates(members, links, cfg.TargetedRoles())
	limit := opts.MaxCandidates
	if limit == 0 {
		limit = r.cfg.MaxCandidates
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	wars := r.warMap(ctx, cfg)

	run := newRun(guildID, opts.Trigger, opts.DryRun, len(candidates))
	if opts.Logging {
		r.runs.start(run)
		defer r.runs.end(run)
	}
	defer run.finish()

	r.logger.InfoContext(ctx, "Reconciliation started",
		slog.String("guild_id", string(guildID)),
		slog.String("run_id", run.ID.String()),
		slog.String("trigger", string(opts.Trigger)),
		slog.Bool("dry_run", opts.DryRun),
		slog.Int("candidates", len(candidates)),
	)

	for _, member := range candidates {
		if err := ctx.Err(); err != nil {
			run.advance(nil, &Skip{UserID: member.UserID, Reason: err.Error()})
			continue
		}

		plan, err := r.plan(ctx, guild, cfg, member, links[member.UserID], wars)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping member",
				slog.String("guild_id", string(guildID)),
				slog.String("user_id", string(member.UserID)),
				slog.Any("error", err),
			)
			run.advance(nil, &Skip{UserID: member.UserID, Reason: err.Error()})
			continue
		}
		if !plan.changed() {
			run.advance(nil, nil)
			continue
		}

		if err := r.apply(ctx, guildID, plan, opts.DryRun); err != nil {
			r.logger.WarnContext(ctx, "Member edit failed",
				slog.String("guild_id", string(guildID)),
				slog.String("user_id", string(member.UserID)),
				slog.Any("error", err),
			)
			run.advance(nil, &Skip{UserID: member.UserID, Reason: err.Error()})
			continue
		}
		entry := plan.entry()
		run.advance(&entry, nil)
	}

	summary := run.Summary()
	r.logger.InfoContext(ctx, "Reconciliation finished",
		slog.String("guild_id", string(guildID)),
		slog.String("run_id", run.ID.String()),
		slog.Int("updated", summary.Updated()),
		slog.Int("skipped", len(summary.Skipped)),
	)
	return run, nil
}

// loadMembers returns the members a run covers and their links grouped by user.
// Every selector resolves links to the same per-user account sets.
func (r *Reconciler) loadMembers(ctx context.Context, guildID rolesyncdomain.GuildID, opts RunOptions) ([]rolesyncdomain.Member, map[rolesyncdomain.UserID][]rolesyncdomain.LinkedAccount, error) {
	switch {
	case len(opts.PlayerTags) > 0:
		accounts, err := r.links.FindByGameTags(ctx, opts.PlayerTags)
		if err != nil {
			return nil, nil, fmt.Errorf("find links by tag: %w", err)
		}
		links := groupLinks(accounts)
		userIDs := make([]rolesyncdomain.UserID, 0, len(links))
		for id := range links {
			userIDs = append(userIDs, id)
		}
		members, err := r.fetchMembers(ctx, guildID, userIDs)
		return members, links, err

	case len(opts.UserIDs) > 0:
		members, err := r.fetchMembers(ctx, guildID, opts.UserIDs)
		if err != nil {
			return nil, nil, err
		}
		links, err := r.linksFor(ctx, members)
		return members, links, err

	default:
		members, err := callWithTimeout(ctx, r.cfg.CallTimeout, func(ctx context.Context) ([]rolesyncdomain.Member, error) {
			return r.directory.Members(ctx, guildID)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("load guild members: %w", err)
		}
		links, err := r.linksFor(ctx, members)
		return members, links, err
	}
}

func (r *Reconciler) fetchMembers(ctx context.Context, guildID rolesyncdomain.GuildID, userIDs []rolesyncdomain.UserID) ([]rolesyncdomain.Member, error) {
	members := make([]rolesyncdomain.Member, 0, len(userIDs))
	for _, id := range userIDs {
		member, err := callWithTimeout(ctx, r.cfg.CallTimeout, func(ctx context.Context) (rolesyncdomain.Member, error) {
			return r.directory.Member(ctx, guildID, id)
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load member %s: %w", id, err)
		}
		members = append(members, member)
	}
	return members, nil
}

func (r *Reconciler) linksFor(ctx context.Context, members []rolesyncdomain.Member) (map[rolesyncdomain.UserID][]rolesyncdomain.LinkedAccount, error) {
	ids := make([]rolesyncdomain.UserID, 0, len(members))
	for _, m := range members {
		if !m.Bot {
			ids = append(ids, m.UserID)
		}
	}
	if len(ids) == 0 {
		return map[rolesyncdomain.UserID][]rolesyncdomain.LinkedAccount{}, nil
	}
	accounts, err := r.links.FindByUserIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find links by user: %w", err)
	}
	return groupLinks(accounts), nil
}

func (r *Reconciler) warMap(ctx context.Context, cfg *rolesyncdomain.GuildRoles) map[rolesyncdomain.PlayerTag]rolesyncdomain.ClanTag {
	var tags []rolesyncdomain.ClanTag
	for _, tag := range cfg.WarClanTags {
		if clan, ok := cfg.ClanRoles[tag]; ok && clan.WarRoleID != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	return r.wars.Build(ctx, tags)
}

// groupLinks indexes accounts by user, each list in priority order.
func groupLinks(accounts []rolesyncdomain.LinkedAccount) map[rolesyncdomain.UserID][]rolesyncdomain.LinkedAccount {
	out := make(map[rolesyncdomain.UserID][]rolesyncdomain.LinkedAccount)
	seen := make(map[rolesyncdomain.PlayerTag]bool)
	for _, acc := range accounts {
		if seen[acc.Tag] {
			continue
		}
		seen[acc.Tag] = true
		out[acc.UserID] = append(out[acc.UserID], acc)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Order != list[j].Order {
				return list[i].Order < list[j].Order
			}
			return list[i].Tag < list[j].Tag
		})
	}
	return out
}

// selectCandidates keeps non-bot members that hold a targeted role or have a
// linked account, ordered by user id.
func selectCandidates(members []rolesyncdomain.Member, links map[rolesyncdomain.UserID][]rolesyncdomain.LinkedAccount, targeted rolesyncdomain.RoleSet) []rolesyncdomain.Member {
	out := make([]rolesyncdomain.Member, 0, len(members))
	for _, m := range members {
		if m.Bot {
			continue
		}
		if len(links[m.UserID]) > 0 || m.Roles().Intersect(targeted).Len() > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := withTimeout(ctx, d)
	defer cancel()
	v, err := fn(callCtx)
	return v, upstream(err)
}

// upstream tags call timeouts with ErrUpstream.
func upstream(err error) error {
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrUpstream) {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return err
}

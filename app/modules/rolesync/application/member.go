package rolesyncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// memberPlan is the computed change for one member.
type memberPlan struct {
	member       rolesyncdomain.Member
	roles        rolesyncdomain.RoleSet
	rolesChanged bool
	included     []rolesyncdomain.RoleID
	excluded     []rolesyncdomain.RoleID
	nickname     rolesyncdomain.NicknameDecision
}

func (p memberPlan) changed() bool {
	return p.rolesChanged || p.nickname.Mutates()
}

func (p memberPlan) edit() MemberEdit {
	var edit MemberEdit
	if p.rolesChanged {
		edit.Roles = p.roles.Sorted()
	}
	if p.nickname.Mutates() {
		nick := p.nickname.Value
		edit.Nick = &nick
	}
	return edit
}

func (p memberPlan) entry() ChangeLogEntry {
	entry := ChangeLogEntry{
		UserID:      p.member.UserID,
		DisplayName: p.member.DisplayName(),
		Included:    p.included,
		Excluded:    p.excluded,
	}
	if p.nickname.Mutates() {
		nick := p.nickname.Value
		entry.Nickname = &nick
	}
	return entry
}

// plan resolves the member's accounts and computes the hierarchy-safe change.
// A failed snapshot lookup skips the member instead of stripping their roles.
func (r *Reconciler) plan(
	ctx context.Context,
	guild rolesyncdomain.GuildState,
	cfg *rolesyncdomain.GuildRoles,
	member rolesyncdomain.Member,
	links []rolesyncdomain.LinkedAccount,
	wars map[rolesyncdomain.PlayerTag]rolesyncdomain.ClanTag,
) (memberPlan, error) {
	accounts, err := r.resolveAccounts(ctx, links, wars)
	if err != nil {
		return memberPlan{}, err
	}

	decision := rolesyncdomain.ResolvePlayerRoles(accounts, cfg)
	safe := decision.Restrict(guild.ManageableRoles(decision.Targeted))

	current := member.Roles()
	next := safe.Apply(current)

	nickname := rolesyncdomain.NoAction()
	if len(links) == 0 || len(accounts) > 0 {
		nickname = rolesyncdomain.FormatNickname(accounts, member, guild, cfg)
	}
	if nickname.Action == rolesyncdomain.NicknameDeclined && cfg.Nicknames.Enabled {
		r.logger.DebugContext(ctx, "Nickname edit declined",
			slog.String("guild_id", string(guild.GuildID)),
			slog.String("user_id", string(member.UserID)),
			slog.String("reason", nickname.Reason),
		)
	}

	return memberPlan{
		member:       member,
		roles:        next,
		rolesChanged: !next.Equal(current),
		included:     next.Minus(current).Sorted(),
		excluded:     current.Minus(next).Sorted(),
		nickname:     nickname,
	}, nil
}

// resolveAccounts fetches fresh snapshots for the links. Tags the game API
// does not know are dropped.
func (r *Reconciler) resolveAccounts(
	ctx context.Context,
	links []rolesyncdomain.LinkedAccount,
	wars map[rolesyncdomain.PlayerTag]rolesyncdomain.ClanTag,
) ([]rolesyncdomain.Account, error) {
	if len(links) == 0 {
		return nil, nil
	}
	tags := make([]rolesyncdomain.PlayerTag, len(links))
	for i, l := range links {
		tags[i] = l.Tag
	}

	callCtx, cancel := withTimeout(ctx, r.cfg.CallTimeout)
	found, _, err := r.players.Players(callCtx, tags)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("fetch players: %w", upstream(err))
	}

	byTag := make(map[rolesyncdomain.PlayerTag]rolesyncdomain.PlayerSnapshot, len(found))
	for _, snap := range found {
		byTag[snap.Tag] = snap
	}

	accounts := make([]rolesyncdomain.Account, 0, len(links))
	for _, l := range links {
		snap, ok := byTag[l.Tag]
		if !ok {
			continue
		}
		accounts = append(accounts, rolesyncdomain.Account{
			PlayerSnapshot: snap,
			Verified:       l.Verified,
			Order:          l.Order,
			WarClanTag:     wars[snap.Tag],
		})
	}
	return accounts, nil
}

// apply paces and sends the edit. Dry runs only count.
func (r *Reconciler) apply(ctx context.Context, guildID rolesyncdomain.GuildID, p memberPlan, dryRun bool) error {
	if dryRun {
		r.metrics.RecordMemberEdit(ctx, "dry_run")
		return nil
	}
	if err := r.pacer.Wait(ctx, guildID); err != nil {
		return fmt.Errorf("pace edit: %w", err)
	}

	callCtx, cancel := withTimeout(ctx, r.cfg.CallTimeout)
	err := upstream(r.directory.EditMember(callCtx, guildID, p.member.UserID, p.edit()))
	cancel()
	if err != nil {
		outcome := "failed"
		if errors.Is(err, ErrForbidden) {
			outcome = "forbidden"
			err = fmt.Errorf("%w: %w", ErrHierarchyViolation, err)
		}
		r.metrics.RecordMemberEdit(ctx, outcome)
		return fmt.Errorf("edit member: %w", err)
	}
	r.metrics.RecordMemberEdit(ctx, "applied")
	return nil
}

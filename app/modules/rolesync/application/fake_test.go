package rolesyncservice

import (
	"context"
	"sync"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// ------------------------
// Fake Member Directory
// ------------------------

// FakeDirectory is a programmable in-memory guild. By default EditMember
// applies the edit to the stored member so consecutive runs observe it.
type FakeDirectory struct {
	mu    sync.Mutex
	trace []string

	State   rolesyncdomain.GuildState
	members map[rolesyncdomain.UserID]rolesyncdomain.Member
	Edits   []RecordedEdit

	GuildFunc      func(ctx context.Context, guildID rolesyncdomain.GuildID) (rolesyncdomain.GuildState, error)
	MembersFunc    func(ctx context.Context, guildID rolesyncdomain.GuildID) ([]rolesyncdomain.Member, error)
	EditMemberFunc func(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, edit MemberEdit) error
}

type RecordedEdit struct {
	UserID rolesyncdomain.UserID
	Edit   MemberEdit
}

var _ MemberDirectory = (*FakeDirectory)(nil)

func NewFakeDirectory(state rolesyncdomain.GuildState, members ...rolesyncdomain.Member) *FakeDirectory {
	f := &FakeDirectory{State: state, members: make(map[rolesyncdomain.UserID]rolesyncdomain.Member)}
	for _, m := range members {
		f.members[m.UserID] = m
	}
	return f
}

func (f *FakeDirectory) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeDirectory) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeDirectory) EditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Edits)
}

func (f *FakeDirectory) Get(id rolesyncdomain.UserID) rolesyncdomain.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[id]
}

func (f *FakeDirectory) Guild(ctx context.Context, guildID rolesyncdomain.GuildID) (rolesyncdomain.GuildState, error) {
	f.mu.Lock()
	f.record("Guild")
	f.mu.Unlock()
	if f.GuildFunc != nil {
		return f.GuildFunc(ctx, guildID)
	}
	return f.State, nil
}

func (f *FakeDirectory) Members(ctx context.Context, guildID rolesyncdomain.GuildID) ([]rolesyncdomain.Member, error) {
	f.mu.Lock()
	f.record("Members")
	f.mu.Unlock()
	if f.MembersFunc != nil {
		return f.MembersFunc(ctx, guildID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]rolesyncdomain.Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, m)
	}
	return out, nil
}

func (f *FakeDirectory) Member(_ context.Context, _ rolesyncdomain.GuildID, userID rolesyncdomain.UserID) (rolesyncdomain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Member")
	m, ok := f.members[userID]
	if !ok {
		return rolesyncdomain.Member{}, ErrNotFound
	}
	return m, nil
}

func (f *FakeDirectory) EditMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, edit MemberEdit) error {
	f.mu.Lock()
	f.record("EditMember")
	f.mu.Unlock()
	if f.EditMemberFunc != nil {
		if err := f.EditMemberFunc(ctx, guildID, userID, edit); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Edits = append(f.Edits, RecordedEdit{UserID: userID, Edit: edit})
	m := f.members[userID]
	if edit.Roles != nil {
		m.RoleIDs = append([]rolesyncdomain.RoleID(nil), edit.Roles...)
	}
	if edit.Nick != nil {
		m.Nick = *edit.Nick
	}
	f.members[userID] = m
	return nil
}

// ------------------------
// Fake Player Source
// ------------------------

type FakePlayers struct {
	mu    sync.Mutex
	trace []string

	Snapshots map[rolesyncdomain.PlayerTag]rolesyncdomain.PlayerSnapshot
	Wars      map[rolesyncdomain.ClanTag]rolesyncdomain.WarState

	PlayersFunc    func(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.PlayerSnapshot, []rolesyncdomain.PlayerTag, error)
	CurrentWarFunc func(ctx context.Context, clanTag rolesyncdomain.ClanTag) (rolesyncdomain.WarState, error)
}

var _ PlayerSource = (*FakePlayers)(nil)

func NewFakePlayers(snaps ...rolesyncdomain.PlayerSnapshot) *FakePlayers {
	f := &FakePlayers{
		Snapshots: make(map[rolesyncdomain.PlayerTag]rolesyncdomain.PlayerSnapshot),
		Wars:      make(map[rolesyncdomain.ClanTag]rolesyncdomain.WarState),
	}
	for _, s := range snaps {
		f.Snapshots[s.Tag] = s
	}
	return f
}

func (f *FakePlayers) record(step string) {
	f.mu.Lock()
	f.trace = append(f.trace, step)
	f.mu.Unlock()
}

func (f *FakePlayers) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakePlayers) Players(ctx context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.PlayerSnapshot, []rolesyncdomain.PlayerTag, error) {
	f.record("Players")
	if f.PlayersFunc != nil {
		return f.PlayersFunc(ctx, tags)
	}
	var (
		found   []rolesyncdomain.PlayerSnapshot
		missing []rolesyncdomain.PlayerTag
	)
	for _, t := range tags {
		if s, ok := f.Snapshots[t]; ok {
			found = append(found, s)
		} else {
			missing = append(missing, t)
		}
	}
	return found, missing, nil
}

func (f *FakePlayers) CurrentWar(ctx context.Context, clanTag rolesyncdomain.ClanTag) (rolesyncdomain.WarState, error) {
	f.record("CurrentWar")
	if f.CurrentWarFunc != nil {
		return f.CurrentWarFunc(ctx, clanTag)
	}
	if w, ok := f.Wars[clanTag]; ok {
		return w, nil
	}
	return rolesyncdomain.WarState{ClanTag: clanTag, Phase: rolesyncdomain.WarNotInWar}, nil
}

// ------------------------
// Fake Link Store
// ------------------------

type FakeLinks struct {
	trace []string
	Links []rolesyncdomain.LinkedAccount

	FindByUserIDsFunc func(ctx context.Context, ids []rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error)
}

var _ LinkStore = (*FakeLinks)(nil)

func (f *FakeLinks) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeLinks) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeLinks) FindByUserIDs(ctx context.Context, ids []rolesyncdomain.UserID) ([]rolesyncdomain.LinkedAccount, error) {
	f.record("FindByUserIDs")
	if f.FindByUserIDsFunc != nil {
		return f.FindByUserIDsFunc(ctx, ids)
	}
	want := make(map[rolesyncdomain.UserID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []rolesyncdomain.LinkedAccount
	for _, l := range f.Links {
		if want[l.UserID] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *FakeLinks) FindByGameTags(_ context.Context, tags []rolesyncdomain.PlayerTag) ([]rolesyncdomain.LinkedAccount, error) {
	f.record("FindByGameTags")
	owners := make(map[rolesyncdomain.UserID]bool)
	for _, t := range tags {
		for _, l := range f.Links {
			if l.Tag == t {
				owners[l.UserID] = true
			}
		}
	}
	var out []rolesyncdomain.LinkedAccount
	for _, l := range f.Links {
		if owners[l.UserID] {
			out = append(out, l)
		}
	}
	return out, nil
}

// ------------------------
// Fake Config Resolver
// ------------------------

type FakeConfigs struct {
	trace   []string
	Configs map[rolesyncdomain.GuildID]*rolesyncdomain.GuildRoles

	ResolveFunc func(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error)
}

var _ ConfigResolver = (*FakeConfigs)(nil)

func (f *FakeConfigs) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeConfigs) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeConfigs) Resolve(ctx context.Context, guildID rolesyncdomain.GuildID) (*rolesyncdomain.GuildRoles, error) {
	f.record("Resolve")
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, guildID)
	}
	if cfg, ok := f.Configs[guildID]; ok {
		return cfg, nil
	}
	return &rolesyncdomain.GuildRoles{GuildID: guildID}, nil
}

func (f *FakeConfigs) GuildsForClan(_ context.Context, clanTag rolesyncdomain.ClanTag) ([]rolesyncdomain.GuildID, error) {
	f.record("GuildsForClan")
	var out []rolesyncdomain.GuildID
	for id, cfg := range f.Configs {
		if cfg.IsFamilyClan(clanTag) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *FakeConfigs) ConfiguredGuilds(context.Context) ([]rolesyncdomain.GuildID, error) {
	f.record("ConfiguredGuilds")
	out := make([]rolesyncdomain.GuildID, 0, len(f.Configs))
	for id := range f.Configs {
		out = append(out, id)
	}
	return out, nil
}

// ------------------------
// Fake Pacer, Gate & Metrics
// ------------------------

type FakePacer struct {
	mu    sync.Mutex
	waits int
}

func (p *FakePacer) Wait(context.Context, rolesyncdomain.GuildID) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return nil
}

func (p *FakePacer) Waits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waits
}

type FakeGate struct {
	TryAdmitFunc func(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error)
	CoolingFunc  func(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error)
	Released     []time.Duration
}

func (g *FakeGate) Cooling(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error) {
	if g.CoolingFunc != nil {
		return g.CoolingFunc(ctx, guildID, trigger)
	}
	return false, nil
}

func (g *FakeGate) TryAdmit(ctx context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error) {
	if g.TryAdmitFunc != nil {
		return g.TryAdmitFunc(ctx, guildID, trigger)
	}
	return true, nil
}

func (g *FakeGate) Release(_ context.Context, _ rolesyncdomain.GuildID, _ rolesyncdomain.Trigger, after time.Duration) error {
	g.Released = append(g.Released, after)
	return nil
}

type FakeMetrics struct {
	mu        sync.Mutex
	Edits     map[string]int
	GateDrops int
	Failures  int
}

func NewFakeMetrics() *FakeMetrics { return &FakeMetrics{Edits: make(map[string]int)} }

func (m *FakeMetrics) RecordOperationAttempt(context.Context, string, string) {}
func (m *FakeMetrics) RecordOperationSuccess(context.Context, string, string) {}
func (m *FakeMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}

func (m *FakeMetrics) RecordOperationFailure(context.Context, string, string) {
	m.mu.Lock()
	m.Failures++
	m.mu.Unlock()
}

func (m *FakeMetrics) RecordMemberEdit(_ context.Context, outcome string) {
	m.mu.Lock()
	m.Edits[outcome]++
	m.mu.Unlock()
}

func (m *FakeMetrics) RecordGateDrop(context.Context, string) {
	m.mu.Lock()
	m.GateDrops++
	m.mu.Unlock()
}

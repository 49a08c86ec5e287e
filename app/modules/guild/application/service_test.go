package guildservice

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestService(repo *FakeGuildRepository) (*GuildService, *FakeMetrics) {
	metrics := &FakeMetrics{}
	s := NewGuildService(repo, nil, observability.NewNopLogger(), metrics, noop.NewTracerProvider().Tracer("test"))
	s.runInTx = func(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
		return fn(ctx, nil)
	}
	return s, metrics
}

func TestResolve_Defaults(t *testing.T) {
	s, _ := newTestService(NewFakeGuildRepository())

	cfg, err := s.Resolve(context.Background(), "g1")
	require.NoError(t, err)

	assert.Equal(t, rolesyncdomain.GuildID("g1"), cfg.GuildID)
	assert.True(t, cfg.IsEmpty())
	assert.Empty(t, cfg.TownHallRoles)
	assert.NotNil(t, cfg.ClanRoles)
	assert.Equal(t, []rolesyncdomain.ClanTag{}, cfg.ClanTags)
	assert.False(t, cfg.Nicknames.Enabled)
	assert.Equal(t, DefaultFamilyNicknameFormat, cfg.Nicknames.FamilyFormat)
}

func TestResolve_BuildsSnapshot(t *testing.T) {
	repo := NewFakeGuildRepository()
	repo.settings["g1"] = map[string]json.RawMessage{
		KeyTownHallRoles:               json.RawMessage(`{"12":"th12","13":"th13","14":""}`),
		KeyLeagueRoles:                 json.RawMessage(`{"29000022":"legend"}`),
		KeyGuestRoleID:                 json.RawMessage(`"guest"`),
		KeyFamilyRoleID:                json.RawMessage(`"family"`),
		KeyVerifiedRoleID:              json.RawMessage(`"verified"`),
		KeyAllowNonFamilyTownHallRoles: json.RawMessage(`true`),
		KeyNicknameEnabled:             json.RawMessage(`true`),
		KeyFamilyNicknameFormat:        json.RawMessage(`"{NAME} | TH{TH}"`),
		KeyVerifiedOnlyClanRoles:       json.RawMessage(`"not a bool"`),
	}
	repo.clans["g1"] = []guilddb.GuildClan{
		{GuildID: "g1", ClanTag: "#AAA", Name: "Alpha", Alias: "A", LeaderRoleID: "a-leader", MemberRoleID: "a-member", EveryoneRoleID: "a-all", WarRoleID: "a-war"},
		{GuildID: "g1", ClanTag: "#BBB", Name: "Beta", ElderRoleID: "b-elder", VerifiedOnly: true},
	}

	s, _ := newTestService(repo)
	cfg, err := s.Resolve(context.Background(), "g1")
	require.NoError(t, err)

	want := &rolesyncdomain.GuildRoles{
		GuildID:       "g1",
		TownHallRoles: map[int]rolesyncdomain.RoleID{12: "th12", 13: "th13"},
		LeagueRoles:   map[int]rolesyncdomain.RoleID{29000022: "legend"},
		ClanRoles: map[rolesyncdomain.ClanTag]rolesyncdomain.ClanRoles{
			"#AAA": {
				Name:  "Alpha",
				Alias: "A",
				Roles: map[rolesyncdomain.ClanRank]rolesyncdomain.RoleID{
					rolesyncdomain.RankLeader: "a-leader",
					rolesyncdomain.RankMember: "a-member",
				},
				EveryoneRoleID: "a-all",
				WarRoleID:      "a-war",
			},
			"#BBB": {
				Name:         "Beta",
				Roles:        map[rolesyncdomain.ClanRank]rolesyncdomain.RoleID{rolesyncdomain.RankElder: "b-elder"},
				VerifiedOnly: true,
			},
		},
		GuestRoleID:                 "guest",
		FamilyRoleID:                "family",
		VerifiedRoleID:              "verified",
		ClanTags:                    []rolesyncdomain.ClanTag{"#AAA", "#BBB"},
		WarClanTags:                 []rolesyncdomain.ClanTag{"#AAA"},
		AllowNonFamilyTownHallRoles: true,
		Nicknames: rolesyncdomain.NicknameSettings{
			Enabled:         true,
			FamilyFormat:    "{NAME} | TH{TH}",
			NonFamilyFormat: DefaultNonFamilyNicknameFormat,
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_SnapshotsAreIndependent(t *testing.T) {
	repo := NewFakeGuildRepository()
	repo.clans["g1"] = []guilddb.GuildClan{{GuildID: "g1", ClanTag: "#AAA", MemberRoleID: "m"}}
	s, _ := newTestService(repo)

	first, err := s.Resolve(context.Background(), "g1")
	require.NoError(t, err)
	first.ClanTags[0] = "#ZZZ"
	first.ClanRoles["#AAA"].Roles[rolesyncdomain.RankMember] = "changed"

	second, err := s.Resolve(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []rolesyncdomain.ClanTag{"#AAA"}, second.ClanTags)
	assert.Equal(t, rolesyncdomain.RoleID("m"), second.ClanRoles["#AAA"].Roles[rolesyncdomain.RankMember])
}

func TestResolve_RepositoryError(t *testing.T) {
	repo := NewFakeGuildRepository()
	repo.Err = errors.New("connection refused")
	s, metrics := newTestService(repo)

	_, err := s.Resolve(context.Background(), "g1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Resolve")
	assert.Equal(t, 1, metrics.failures)
}

func TestSetSetting(t *testing.T) {
	tests := []struct {
		name        string
		guildID     rolesyncdomain.GuildID
		key         string
		value       string
		wantFailure error
	}{
		{name: "role id", guildID: "g1", key: KeyGuestRoleID, value: `"r1"`},
		{name: "town hall map", guildID: "g1", key: KeyTownHallRoles, value: `{"13":"r13"}`},
		{name: "flag", guildID: "g1", key: KeyNicknameEnabled, value: `true`},
		{name: "unknown key", guildID: "g1", key: "signup_emoji", value: `"x"`, wantFailure: ErrUnknownSetting},
		{name: "wrong type", guildID: "g1", key: KeyNicknameEnabled, value: `"yes"`, wantFailure: ErrInvalidSetting},
		{name: "non numeric level", guildID: "g1", key: KeyTownHallRoles, value: `{"max":"r"}`, wantFailure: ErrInvalidSetting},
		{name: "missing guild", key: KeyGuestRoleID, value: `"r1"`, wantFailure: ErrInvalidGuildID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeGuildRepository()
			s, _ := newTestService(repo)

			res, err := s.SetSetting(context.Background(), tt.guildID, tt.key, json.RawMessage(tt.value))
			require.NoError(t, err)

			if tt.wantFailure != nil {
				require.NotNil(t, res.Failure)
				assert.ErrorIs(t, *res.Failure, tt.wantFailure)
				assert.Empty(t, repo.Trace())
				return
			}
			require.NotNil(t, res.Success)
			assert.Equal(t, tt.key, res.Success.Key)
			assert.JSONEq(t, tt.value, string(repo.settings["g1"][tt.key]))
		})
	}
}

func TestDeleteSetting(t *testing.T) {
	repo := NewFakeGuildRepository()
	repo.settings["g1"] = map[string]json.RawMessage{KeyGuestRoleID: json.RawMessage(`"r1"`)}
	s, _ := newTestService(repo)

	res, err := s.DeleteSetting(context.Background(), "g1", KeyGuestRoleID)
	require.NoError(t, err)
	require.NotNil(t, res.Success)

	res, err = s.DeleteSetting(context.Background(), "g1", KeyGuestRoleID)
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrSettingNotFound)

	res, err = s.DeleteSetting(context.Background(), "g1", "bogus")
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrUnknownSetting)
}

func TestLinkClan_FirstClanDefaultsVerifiedOnly(t *testing.T) {
	repo := NewFakeGuildRepository()
	s, _ := newTestService(repo)

	res, err := s.LinkClan(context.Background(), "g1", ClanLink{ClanTag: "aaa", Name: "Alpha", MemberRoleID: "m"})
	require.NoError(t, err)
	require.NotNil(t, res.Success)
	assert.Equal(t, rolesyncdomain.ClanTag("#AAA"), res.Success.ClanTag)
	assert.JSONEq(t, `false`, string(repo.settings["g1"][KeyVerifiedOnlyClanRoles]))
	assert.Equal(t, []string{"ListClans", "SaveClan", "GetSetting", "SetSetting"}, repo.Trace())

	_, err = s.LinkClan(context.Background(), "g1", ClanLink{ClanTag: "#BBB", Name: "Beta"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ListClans", "SaveClan", "GetSetting", "SetSetting", "ListClans", "SaveClan"}, repo.Trace())
}

func TestLinkClan_KeepsExplicitVerifiedOnly(t *testing.T) {
	repo := NewFakeGuildRepository()
	repo.settings["g1"] = map[string]json.RawMessage{KeyVerifiedOnlyClanRoles: json.RawMessage(`true`)}
	s, _ := newTestService(repo)

	_, err := s.LinkClan(context.Background(), "g1", ClanLink{ClanTag: "#AAA"})
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(repo.settings["g1"][KeyVerifiedOnlyClanRoles]))
}

func TestLinkClan_Validation(t *testing.T) {
	s, _ := newTestService(NewFakeGuildRepository())

	res, err := s.LinkClan(context.Background(), "g1", ClanLink{ClanTag: "  "})
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrInvalidClanTag)

	res, err = s.LinkClan(context.Background(), "", ClanLink{ClanTag: "#AAA"})
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrInvalidGuildID)
}

func TestUnlinkAndList(t *testing.T) {
	repo := NewFakeGuildRepository()
	s, _ := newTestService(repo)
	ctx := context.Background()

	for _, tag := range []string{"#AAA", "#BBB"} {
		_, err := s.LinkClan(ctx, "g1", ClanLink{ClanTag: rolesyncdomain.ClanTag(tag), WarRoleID: "w"})
		require.NoError(t, err)
	}
	_, err := s.LinkClan(ctx, "g2", ClanLink{ClanTag: "#AAA"})
	require.NoError(t, err)

	guilds, err := s.GuildsForClan(ctx, "aaa")
	require.NoError(t, err)
	sort.Slice(guilds, func(i, j int) bool { return guilds[i] < guilds[j] })
	assert.Equal(t, []rolesyncdomain.GuildID{"g1", "g2"}, guilds)

	res, err := s.UnlinkClan(ctx, "g1", "#aaa")
	require.NoError(t, err)
	require.NotNil(t, res.Success)

	res, err = s.UnlinkClan(ctx, "g1", "#AAA")
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrClanNotLinked)

	clans, err := s.ListClans(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, clans, 1)
	assert.Equal(t, rolesyncdomain.ClanTag("#BBB"), clans[0].ClanTag)
	assert.Equal(t, rolesyncdomain.RoleID("w"), clans[0].WarRoleID)
}

func TestConfiguredGuilds(t *testing.T) {
	repo := NewFakeGuildRepository()
	repo.clans["g1"] = []guilddb.GuildClan{{GuildID: "g1", ClanTag: "#AAA"}}
	repo.clans["g2"] = nil
	s, _ := newTestService(repo)

	got, err := s.ConfiguredGuilds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []rolesyncdomain.GuildID{"g1"}, got)
}

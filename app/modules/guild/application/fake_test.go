package guildservice

import (
	"context"
	"encoding/json"
	"time"

	guilddb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/guild/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakeGuildRepository is an in-memory guilddb.Repository that records calls.
type FakeGuildRepository struct {
	trace []string

	settings map[string]map[string]json.RawMessage
	clans    map[string][]guilddb.GuildClan

	// Err, when set, fails every call.
	Err error
}

var _ guilddb.Repository = (*FakeGuildRepository)(nil)

func NewFakeGuildRepository() *FakeGuildRepository {
	return &FakeGuildRepository{
		trace:    []string{},
		settings: map[string]map[string]json.RawMessage{},
		clans:    map[string][]guilddb.GuildClan{},
	}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeGuildRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeGuildRepository) record(step string) error {
	f.trace = append(f.trace, step)
	return f.Err
}

func (f *FakeGuildRepository) GetSetting(_ context.Context, _ bun.IDB, guildID, key string) (json.RawMessage, error) {
	if err := f.record("GetSetting"); err != nil {
		return nil, err
	}
	v, ok := f.settings[guildID][key]
	if !ok {
		return nil, guilddb.ErrNotFound
	}
	return v, nil
}

func (f *FakeGuildRepository) ListSettings(_ context.Context, _ bun.IDB, guildID string) (map[string]json.RawMessage, error) {
	if err := f.record("ListSettings"); err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{}
	for k, v := range f.settings[guildID] {
		out[k] = v
	}
	return out, nil
}

func (f *FakeGuildRepository) SetSetting(_ context.Context, _ bun.IDB, guildID, key string, value json.RawMessage) error {
	if err := f.record("SetSetting"); err != nil {
		return err
	}
	if f.settings[guildID] == nil {
		f.settings[guildID] = map[string]json.RawMessage{}
	}
	f.settings[guildID][key] = value
	return nil
}

func (f *FakeGuildRepository) DeleteSetting(_ context.Context, _ bun.IDB, guildID, key string) error {
	if err := f.record("DeleteSetting"); err != nil {
		return err
	}
	if _, ok := f.settings[guildID][key]; !ok {
		return guilddb.ErrNoRowsAffected
	}
	delete(f.settings[guildID], key)
	return nil
}

func (f *FakeGuildRepository) SaveClan(_ context.Context, _ bun.IDB, clan *guilddb.GuildClan) error {
	if err := f.record("SaveClan"); err != nil {
		return err
	}
	list := f.clans[clan.GuildID]
	for i, c := range list {
		if c.ClanTag == clan.ClanTag {
			clan.CreatedAt = c.CreatedAt
			list[i] = *clan
			return nil
		}
	}
	clan.CreatedAt = time.Now()
	f.clans[clan.GuildID] = append(list, *clan)
	return nil
}

func (f *FakeGuildRepository) DeleteClan(_ context.Context, _ bun.IDB, guildID, clanTag string) error {
	if err := f.record("DeleteClan"); err != nil {
		return err
	}
	list := f.clans[guildID]
	for i, c := range list {
		if c.ClanTag == clanTag {
			f.clans[guildID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return guilddb.ErrNoRowsAffected
}

func (f *FakeGuildRepository) ListClans(_ context.Context, _ bun.IDB, guildID string) ([]guilddb.GuildClan, error) {
	if err := f.record("ListClans"); err != nil {
		return nil, err
	}
	return append([]guilddb.GuildClan(nil), f.clans[guildID]...), nil
}

func (f *FakeGuildRepository) GuildsForClan(_ context.Context, _ bun.IDB, clanTag string) ([]string, error) {
	if err := f.record("GuildsForClan"); err != nil {
		return nil, err
	}
	var out []string
	for guildID, list := range f.clans {
		for _, c := range list {
			if c.ClanTag == clanTag {
				out = append(out, guildID)
			}
		}
	}
	return out, nil
}

func (f *FakeGuildRepository) ConfiguredGuilds(_ context.Context, _ bun.IDB) ([]string, error) {
	if err := f.record("ConfiguredGuilds"); err != nil {
		return nil, err
	}
	var out []string
	for guildID, list := range f.clans {
		if len(list) > 0 {
			out = append(out, guildID)
		}
	}
	return out, nil
}

// FakeMetrics counts recorded operations.
type FakeMetrics struct {
	attempts, successes, failures int
}

func (m *FakeMetrics) RecordOperationAttempt(context.Context, string, string) { m.attempts++ }
func (m *FakeMetrics) RecordOperationSuccess(context.Context, string, string) { m.successes++ }
func (m *FakeMetrics) RecordOperationFailure(context.Context, string, string) { m.failures++ }
func (m *FakeMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}

package rolesyncservice

import (
	"context"
	"sync"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// DedupKey is the gate key of a guild and trigger class, e.g. "<guild>-WAR".
func DedupKey(guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) string {
	return string(guildID) + "-" + string(trigger)
}

// MemoryGate is a process-local Gate. A key maps to true while it is only
// waiting out its cool-down.
type MemoryGate struct {
	mu   sync.Mutex
	keys map[string]bool
}

var _ Gate = (*MemoryGate)(nil)

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{keys: make(map[string]bool)}
}

// TryAdmit inserts the key and reports false if it was already present.
func (g *MemoryGate) TryAdmit(_ context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error) {
	key := DedupKey(guildID, trigger)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.keys[key]; busy {
		return false, nil
	}
	g.keys[key] = false
	return true, nil
}

// Cooling reports whether the key is held by a finished run's cool-down.
func (g *MemoryGate) Cooling(_ context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[DedupKey(guildID, trigger)], nil
}

// Release removes the key after the cool-down. A non-positive delay removes it
// immediately.
func (g *MemoryGate) Release(_ context.Context, guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger, after time.Duration) error {
	key := DedupKey(guildID, trigger)
	if after <= 0 {
		g.remove(key)
		return nil
	}
	g.mu.Lock()
	if _, held := g.keys[key]; held {
		g.keys[key] = true
	}
	g.mu.Unlock()
	time.AfterFunc(after, func() { g.remove(key) })
	return nil
}

func (g *MemoryGate) remove(key string) {
	g.mu.Lock()
	delete(g.keys, key)
	g.mu.Unlock()
}

package rolesyncservice

import (
	"sync"
	"time"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/google/uuid"
)

// ChangeLogEntry records the edit made (or planned, in a dry run) for one member.
// Nickname is nil when the nickname was left alone and empty when it was cleared.
type ChangeLogEntry struct {
	UserID      rolesyncdomain.UserID   `json:"user_id"`
	DisplayName string                  `json:"display_name"`
	Included    []rolesyncdomain.RoleID `json:"included"`
	Excluded    []rolesyncdomain.RoleID `json:"excluded"`
	Nickname    *string                 `json:"nickname"`
}

// Skip records a candidate the run could not process.
type Skip struct {
	UserID rolesyncdomain.UserID `json:"user_id"`
	Reason string                `json:"reason"`
}

// Run is an in-progress reconciliation. It is updated by the reconciling
// goroutine and may be read concurrently through Summary.
type Run struct {
	ID          uuid.UUID
	GuildID     rolesyncdomain.GuildID
	Trigger     rolesyncdomain.Trigger
	DryRun      bool
	MemberCount int
	StartedAt   time.Time

	mu         sync.RWMutex
	progress   int
	changes    []ChangeLogEntry
	skipped    []Skip
	finishedAt time.Time
}

func newRun(guildID rolesyncdomain.GuildID, trigger rolesyncdomain.Trigger, dryRun bool, members int) *Run {
	return &Run{
		ID:          uuid.New(),
		GuildID:     guildID,
		Trigger:     trigger,
		DryRun:      dryRun,
		MemberCount: members,
		StartedAt:   time.Now().UTC(),
	}
}

func (r *Run) advance(change *ChangeLogEntry, skip *Skip) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress++
	if change != nil {
		r.changes = append(r.changes, *change)
	}
	if skip != nil {
		r.skipped = append(r.skipped, *skip)
	}
}

func (r *Run) finish() {
	r.mu.Lock()
	r.finishedAt = time.Now().UTC()
	r.mu.Unlock()
}

// RunSummary is a point-in-time copy of a Run.
type RunSummary struct {
	ID          uuid.UUID              `json:"id"`
	GuildID     rolesyncdomain.GuildID `json:"guild_id"`
	Trigger     rolesyncdomain.Trigger `json:"trigger"`
	DryRun      bool                   `json:"dry_run"`
	MemberCount int                    `json:"member_count"`
	Progress    int                    `json:"progress"`
	Changes     []ChangeLogEntry       `json:"changes"`
	Skipped     []Skip                 `json:"skipped"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
}

// Updated is the number of members edited.
func (s RunSummary) Updated() int { return len(s.Changes) }

func (r *Run) Summary() RunSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := RunSummary{
		ID:          r.ID,
		GuildID:     r.GuildID,
		Trigger:     r.Trigger,
		DryRun:      r.DryRun,
		MemberCount: r.MemberCount,
		Progress:    r.progress,
		Changes:     append([]ChangeLogEntry(nil), r.changes...),
		Skipped:     append([]Skip(nil), r.skipped...),
		StartedAt:   r.StartedAt,
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// RunRegistry publishes runs started with logging so callers can follow them.
// A run is current from start until it completes or is cleared; the guild's
// most recent finished run is kept until the next one finishes.
type RunRegistry struct {
	mu   sync.RWMutex
	runs map[rolesyncdomain.GuildID]*Run
	last map[rolesyncdomain.GuildID]*Run
}

func NewRunRegistry() *RunRegistry {
	return &RunRegistry{
		runs: make(map[rolesyncdomain.GuildID]*Run),
		last: make(map[rolesyncdomain.GuildID]*Run),
	}
}

func (g *RunRegistry) start(run *Run) {
	g.mu.Lock()
	g.runs[run.GuildID] = run
	g.mu.Unlock()
}

// end retires run as the guild's latest finished run and removes it from
// the current runs unless a newer run replaced it.
func (g *RunRegistry) end(run *Run) {
	g.mu.Lock()
	if cur, ok := g.runs[run.GuildID]; ok && cur.ID == run.ID {
		delete(g.runs, run.GuildID)
	}
	g.last[run.GuildID] = run
	g.mu.Unlock()
}

// Latest returns the guild's run in progress, or else its last finished run.
func (g *RunRegistry) Latest(guildID rolesyncdomain.GuildID) (*Run, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if run, ok := g.runs[guildID]; ok {
		return run, true
	}
	run, ok := g.last[guildID]
	return run, ok
}

// Current returns the guild's run in progress.
func (g *RunRegistry) Current(guildID rolesyncdomain.GuildID) (*Run, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	run, ok := g.runs[guildID]
	return run, ok
}

// Clear forgets the guild's run. The run itself keeps going.
func (g *RunRegistry) Clear(guildID rolesyncdomain.GuildID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.runs[guildID]
	delete(g.runs, guildID)
	return ok
}

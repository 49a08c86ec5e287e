// Package rolesyncevents defines the topics and payloads of the reconciliation
// engine.
package rolesyncevents

import "time"

// Inbound requests.
const (
	// GuildReconcileRequestedV1 asks for a bulk reconciliation of one guild.
	GuildReconcileRequestedV1 = "rolesync.guild.reconcile.requested.v1"
	// MemberReconcileRequestedV1 asks for a single member to be reconciled.
	MemberReconcileRequestedV1 = "rolesync.member.reconcile.requested.v1"
)

// Outbound results.
const (
	GuildReconcileCompletedV1 = "rolesync.guild.reconcile.completed.v1"
	GuildReconcileSkippedV1   = "rolesync.guild.reconcile.skipped.v1"
)

// StreamName is the JetStream stream holding every rolesync subject.
const StreamName = "rolesync"

type GuildReconcileRequestedPayloadV1 struct {
	GuildID string `json:"guild_id"`
	// Trigger defaults to MANUAL when empty.
	Trigger string `json:"trigger,omitempty"`
	DryRun  bool   `json:"dry_run"`
	Logging bool   `json:"logging"`
}

type MemberReconcileRequestedPayloadV1 struct {
	GuildID string `json:"guild_id"`
	UserID  string `json:"user_id"`
	DryRun  bool   `json:"dry_run"`
}

// MemberChangeV1 is one change log line.
type MemberChangeV1 struct {
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Included    []string `json:"included"`
	Excluded    []string `json:"excluded"`
	// Nickname is nil when untouched and empty when cleared.
	Nickname *string `json:"nickname,omitempty"`
}

type MemberSkipV1 struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type GuildReconcileCompletedPayloadV1 struct {
	RunID       string           `json:"run_id"`
	GuildID     string           `json:"guild_id"`
	Trigger     string           `json:"trigger"`
	DryRun      bool             `json:"dry_run"`
	MemberCount int              `json:"member_count"`
	Updated     int              `json:"updated"`
	Changes     []MemberChangeV1 `json:"changes"`
	Skipped     []MemberSkipV1   `json:"skipped,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

type GuildReconcileSkippedPayloadV1 struct {
	GuildID string `json:"guild_id"`
	Trigger string `json:"trigger"`
	Reason  string `json:"reason"`
}

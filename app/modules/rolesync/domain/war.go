package rolesyncdomain

// WarPhase is the state of a clan's current war as reported by the game API.
type WarPhase string

const (
	WarNotInWar    WarPhase = "notInWar"
	WarPreparation WarPhase = "preparation"
	WarInWar       WarPhase = "inWar"
	WarEnded       WarPhase = "warEnded"
)

// WarState is a clan's current war with its roster.
type WarState struct {
	ClanTag ClanTag
	Phase   WarPhase
	Roster  []PlayerTag
}

// Active reports whether roster members should carry the war role.
func (w WarState) Active() bool {
	return w.Phase == WarPreparation || w.Phase == WarInWar
}

// LinkedAccount is an identity to game account link owned by the link store.
type LinkedAccount struct {
	UserID   UserID    `json:"user_id"`
	Tag      PlayerTag `json:"tag"`
	Name     string    `json:"name"`
	Verified bool      `json:"verified"`
	Order    int       `json:"order"`
}

// Trigger is the class of cause that started a reconciliation. Runs of
// different trigger classes for the same guild never block each other.
type Trigger string

const (
	TriggerManual Trigger = "MANUAL"
	TriggerPoll   Trigger = "POLL"
	TriggerWar    Trigger = "WAR"
	TriggerFeed   Trigger = "FEED"
	// TriggerLink marks single-identity runs, which are not gated.
	TriggerLink Trigger = "LINK"
)

// Gated reports whether runs of this trigger class pass the dedup gate.
func (t Trigger) Gated() bool {
	return t != TriggerLink
}

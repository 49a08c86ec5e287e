// Package clashevents defines the game feed topics consumed by the bot.
package clashevents

const (
	// ClanWarStateChangedV1 fires when a clan's current war changes phase.
	ClanWarStateChangedV1 = "clash.clan.war_state_changed.v1"
	// ClanMembersChangedV1 fires when players join, leave or change rank in a clan.
	ClanMembersChangedV1 = "clash.clan.members_changed.v1"
)

const StreamName = "clash"

type ClanWarStateChangedPayloadV1 struct {
	ClanTag string `json:"clan_tag"`
	Phase   string `json:"phase"`
}

type ClanMembersChangedPayloadV1 struct {
	ClanTag    string   `json:"clan_tag"`
	PlayerTags []string `json:"player_tags"`
}

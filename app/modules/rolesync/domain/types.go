package rolesyncdomain

import (
	"sort"
	"strings"
)

type (
	GuildID   string
	UserID    string
	RoleID    string
	ClanTag   string
	PlayerTag string
)

// NormalizeTag upper-cases a game tag and guarantees the leading '#'.
func NormalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, "O", "0")
	if tag == "" {
		return ""
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}

// ClanRank is a member's rank inside a clan. The zero value means no rank.
type ClanRank int

const (
	RankNone ClanRank = iota
	RankMember
	RankElder
	RankCoLeader
	RankLeader
)

// ParseClanRank maps the game API role names onto ClanRank.
func ParseClanRank(s string) ClanRank {
	switch strings.ToLower(s) {
	case "member":
		return RankMember
	case "admin", "elder":
		return RankElder
	case "coleader", "co-leader", "co_leader":
		return RankCoLeader
	case "leader":
		return RankLeader
	default:
		return RankNone
	}
}

func (r ClanRank) String() string {
	switch r {
	case RankMember:
		return "member"
	case RankElder:
		return "elder"
	case RankCoLeader:
		return "coLeader"
	case RankLeader:
		return "leader"
	default:
		return "none"
	}
}

// ShortLabel is the label used in nicknames.
func (r ClanRank) ShortLabel() string {
	switch r {
	case RankMember:
		return "Mem"
	case RankElder:
		return "Eld"
	case RankCoLeader:
		return "Co-Lead"
	case RankLeader:
		return "Lead"
	default:
		return ""
	}
}

// PlayerSnapshot is the live game state of one account, fetched per pass.
type PlayerSnapshot struct {
	Tag           PlayerTag
	Name          string
	TownHallLevel int
	LeagueID      int
	ClanTag       ClanTag
	ClanName      string
	ClanRank      ClanRank
}

// Account is a resolved linked account as consumed by the resolvers.
type Account struct {
	PlayerSnapshot
	Verified   bool
	Order      int
	WarClanTag ClanTag
}

// SortAccounts orders accounts by link priority, tag breaking ties.
func SortAccounts(accounts []Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Order != accounts[j].Order {
			return accounts[i].Order < accounts[j].Order
		}
		return accounts[i].Tag < accounts[j].Tag
	})
}

// ClanRoles is the role mapping of one linked clan.
type ClanRoles struct {
	Name           string
	Alias          string
	Roles          map[ClanRank]RoleID
	EveryoneRoleID RoleID
	WarRoleID      RoleID
	VerifiedOnly   bool
}

// NicknameSettings holds the nickname feature toggle and templates.
type NicknameSettings struct {
	Enabled         bool
	FamilyFormat    string
	NonFamilyFormat string
}

// GuildRoles is an immutable snapshot of a guild's role configuration.
type GuildRoles struct {
	GuildID                     GuildID
	TownHallRoles               map[int]RoleID
	LeagueRoles                 map[int]RoleID
	ClanRoles                   map[ClanTag]ClanRoles
	GuestRoleID                 RoleID
	FamilyRoleID                RoleID
	VerifiedRoleID              RoleID
	ClanTags                    []ClanTag
	WarClanTags                 []ClanTag
	AllowNonFamilyTownHallRoles bool
	AllowNonFamilyLeagueRoles   bool
	VerifiedOnlyClanRoles       bool
	Nicknames                   NicknameSettings
}

// IsFamilyClan reports whether tag is one of the guild's linked clans.
func (g *GuildRoles) IsFamilyClan(tag ClanTag) bool {
	if tag == "" {
		return false
	}
	for _, t := range g.ClanTags {
		if t == tag {
			return true
		}
	}
	return false
}

// TargetedRoles is the union of all role ids the guild configuration references.
func (g *GuildRoles) TargetedRoles() RoleSet {
	set := NewRoleSet(g.GuestRoleID, g.FamilyRoleID, g.VerifiedRoleID)
	for _, id := range g.TownHallRoles {
		set.Add(id)
	}
	for _, id := range g.LeagueRoles {
		set.Add(id)
	}
	for _, clan := range g.ClanRoles {
		set.Add(clan.EveryoneRoleID)
		set.Add(clan.WarRoleID)
		for _, id := range clan.Roles {
			set.Add(id)
		}
	}
	return set
}

// IsEmpty reports whether the guild has nothing for the engine to manage.
func (g *GuildRoles) IsEmpty() bool {
	return g.TargetedRoles().Len() == 0 && !g.Nicknames.Enabled
}

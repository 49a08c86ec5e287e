package rolesyncdomain

// Capability is a platform permission the bot may hold in a guild.
type Capability int

const (
	ManageRoles Capability = iota + 1
	ManageNicknames
)

// Role is a guild role as seen by the platform.
type Role struct {
	ID       RoleID
	Name     string
	Position int
	// Managed roles belong to integrations and can never be assigned by bots.
	Managed bool
}

// Member is a guild member as seen by the platform.
type Member struct {
	UserID     UserID
	Username   string
	GlobalName string
	Nick       string
	RoleIDs    []RoleID
	Bot        bool
}

// DisplayName is the name the guild currently shows for the member.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.GlobalName != "" {
		return m.GlobalName
	}
	return m.Username
}

// Roles returns the member's role ids as a set.
func (m Member) Roles() RoleSet {
	return NewRoleSet(m.RoleIDs...)
}

// GuildState is the platform state required to make permission-safe decisions.
type GuildState struct {
	GuildID      GuildID
	OwnerID      UserID
	Roles        map[RoleID]Role
	Bot          Member
	Capabilities map[Capability]bool
}

// HasRole reports whether member holds roleID.
func (g GuildState) HasRole(member Member, roleID RoleID) bool {
	for _, id := range member.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HighestRolePosition is the position of the member's highest known role, or
// zero (the @everyone position) when the member holds none.
func (g GuildState) HighestRolePosition(member Member) int {
	highest := 0
	for _, id := range member.RoleIDs {
		if r, ok := g.Roles[id]; ok && r.Position > highest {
			highest = r.Position
		}
	}
	return highest
}

// CanManage reports whether the bot holds the capability.
func (g GuildState) CanManage(c Capability) bool {
	return g.Capabilities[c]
}

// ManageableRoles returns the roles of ids the bot is allowed to add or remove:
// the role must still exist, not be integration-managed and sit strictly below the
// bot's highest role. Stale ids are dropped silently.
func (g GuildState) ManageableRoles(ids RoleSet) RoleSet {
	out := make(RoleSet)
	if !g.CanManage(ManageRoles) {
		return out
	}
	botTop := g.HighestRolePosition(g.Bot)
	for id := range ids {
		r, ok := g.Roles[id]
		if !ok || r.Managed || r.Position >= botTop {
			continue
		}
		out.Add(id)
	}
	return out
}

// CanEditNickname reports whether the bot may change member's nickname.
func (g GuildState) CanEditNickname(member Member) (bool, string) {
	switch {
	case member.UserID == g.OwnerID:
		return false, "member is the guild owner"
	case !g.CanManage(ManageNicknames):
		return false, "missing manage nicknames permission"
	case g.HighestRolePosition(g.Bot) <= g.HighestRolePosition(member):
		return false, "member outranks the bot"
	}
	return true, ""
}

package discord

import (
	"strconv"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// Permission bits used by the directory.
const (
	permAdministrator   uint64 = 1 << 3
	permManageNicknames uint64 = 1 << 27
	permManageRoles     uint64 = 1 << 28
)

type apiUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Bot        bool   `json:"bot"`
}

type apiMember struct {
	User  apiUser  `json:"user"`
	Nick  string   `json:"nick"`
	Roles []string `json:"roles"`
}

type apiRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Managed     bool   `json:"managed"`
	Permissions string `json:"permissions"`
}

type apiGuild struct {
	ID      string    `json:"id"`
	OwnerID string    `json:"owner_id"`
	Roles   []apiRole `json:"roles"`
}

// memberPatch is the body of a modify member call. Nil fields are omitted.
type memberPatch struct {
	Roles *[]string `json:"roles,omitempty"`
	Nick  *string   `json:"nick,omitempty"`
}

func (m apiMember) toDomain() rolesyncdomain.Member {
	roles := make([]rolesyncdomain.RoleID, len(m.Roles))
	for i, r := range m.Roles {
		roles[i] = rolesyncdomain.RoleID(r)
	}
	return rolesyncdomain.Member{
		UserID:     rolesyncdomain.UserID(m.User.ID),
		Username:   m.User.Username,
		GlobalName: m.User.GlobalName,
		Nick:       m.Nick,
		RoleIDs:    roles,
		Bot:        m.User.Bot,
	}
}

func (r apiRole) permissions() uint64 {
	p, err := strconv.ParseUint(r.Permissions, 10, 64)
	if err != nil {
		return 0
	}
	return p
}

// guildState assembles the guild view. The bot's permissions are the union
// of @everyone (whose id equals the guild id) and its own roles.
func guildState(g apiGuild, bot apiMember) rolesyncdomain.GuildState {
	roles := make(map[rolesyncdomain.RoleID]rolesyncdomain.Role, len(g.Roles))
	perms := make(map[string]uint64, len(g.Roles))
	for _, r := range g.Roles {
		roles[rolesyncdomain.RoleID(r.ID)] = rolesyncdomain.Role{
			ID:       rolesyncdomain.RoleID(r.ID),
			Name:     r.Name,
			Position: r.Position,
			Managed:  r.Managed,
		}
		perms[r.ID] = r.permissions()
	}

	granted := perms[g.ID]
	for _, id := range bot.Roles {
		granted |= perms[id]
	}
	all := granted&permAdministrator != 0 || bot.User.ID == g.OwnerID

	return rolesyncdomain.GuildState{
		GuildID: rolesyncdomain.GuildID(g.ID),
		OwnerID: rolesyncdomain.UserID(g.OwnerID),
		Roles:   roles,
		Bot:     bot.toDomain(),
		Capabilities: map[rolesyncdomain.Capability]bool{
			rolesyncdomain.ManageRoles:     all || granted&permManageRoles != 0,
			rolesyncdomain.ManageNicknames: all || granted&permManageNicknames != 0,
		},
	}
}

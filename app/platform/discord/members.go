package discord

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	rolesyncservice "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/application"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// Guild loads the guild's roles, owner and the bot's own member record.
func (c *Client) Guild(ctx context.Context, guildID rolesyncdomain.GuildID) (rolesyncdomain.GuildState, error) {
	botID, err := c.currentBotID(ctx)
	if err != nil {
		return rolesyncdomain.GuildState{}, fmt.Errorf("resolve bot user: %w", err)
	}

	var g apiGuild
	if err := c.do(ctx, http.MethodGet, "/guilds/"+url.PathEscape(string(guildID)), nil, &g); err != nil {
		return rolesyncdomain.GuildState{}, err
	}
	var bot apiMember
	if err := c.do(ctx, http.MethodGet, memberPath(guildID, rolesyncdomain.UserID(botID)), nil, &bot); err != nil {
		return rolesyncdomain.GuildState{}, err
	}
	return guildState(g, bot), nil
}

// Members pages through every member of the guild.
func (c *Client) Members(ctx context.Context, guildID rolesyncdomain.GuildID) ([]rolesyncdomain.Member, error) {
	var out []rolesyncdomain.Member
	after := "0"
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(memberPageSize))
		q.Set("after", after)

		var page []apiMember
		path := "/guilds/" + url.PathEscape(string(guildID)) + "/members?" + q.Encode()
		if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page {
			out = append(out, m.toDomain())
		}
		if len(page) < memberPageSize {
			return out, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (c *Client) Member(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID) (rolesyncdomain.Member, error) {
	var m apiMember
	if err := c.do(ctx, http.MethodGet, memberPath(guildID, userID), nil, &m); err != nil {
		return rolesyncdomain.Member{}, err
	}
	return m.toDomain(), nil
}

// EditMember applies a partial update. An empty Nick resets the nickname.
func (c *Client) EditMember(ctx context.Context, guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID, edit rolesyncservice.MemberEdit) error {
	patch := memberPatch{Nick: edit.Nick}
	if edit.Roles != nil {
		roles := make([]string, len(edit.Roles))
		for i, r := range edit.Roles {
			roles[i] = string(r)
		}
		patch.Roles = &roles
	}
	if patch.Roles == nil && patch.Nick == nil {
		return nil
	}
	return c.do(ctx, http.MethodPatch, memberPath(guildID, userID), patch, nil)
}

func memberPath(guildID rolesyncdomain.GuildID, userID rolesyncdomain.UserID) string {
	return "/guilds/" + url.PathEscape(string(guildID)) + "/members/" + url.PathEscape(string(userID))
}

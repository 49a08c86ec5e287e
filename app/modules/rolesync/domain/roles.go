package rolesyncdomain

// ResolvePlayerRoles maps a member's resolved accounts onto the guild's managed
// roles. It is a pure function of its inputs.
func ResolvePlayerRoles(accounts []Account, cfg *GuildRoles) RoleDecision {
	targeted := cfg.TargetedRoles()
	include := make(RoleSet)

	family := false
	byClan := make(map[ClanTag][]Account)
	for _, acc := range accounts {
		if cfg.IsFamilyClan(acc.ClanTag) {
			family = true
			byClan[acc.ClanTag] = append(byClan[acc.ClanTag], acc)
		}
	}

	for _, tag := range cfg.ClanTags {
		members, ok := byClan[tag]
		if !ok {
			continue
		}
		clan, ok := cfg.ClanRoles[tag]
		if !ok {
			continue
		}
		include.Add(clan.EveryoneRoleID)

		if (clan.VerifiedOnly || cfg.VerifiedOnlyClanRoles) && !anyVerified(members) {
			continue
		}
		if id, ok := clan.Roles[highestRank(members)]; ok {
			include.Add(id)
		}
	}

	for _, acc := range accounts {
		if acc.WarClanTag == "" {
			continue
		}
		if clan, ok := cfg.ClanRoles[acc.WarClanTag]; ok {
			include.Add(clan.WarRoleID)
		}
	}

	if family || cfg.AllowNonFamilyTownHallRoles {
		for _, acc := range accounts {
			include.Add(cfg.TownHallRoles[acc.TownHallLevel])
		}
	}
	if family || cfg.AllowNonFamilyLeagueRoles {
		for _, acc := range accounts {
			include.Add(cfg.LeagueRoles[acc.LeagueID])
		}
	}

	if anyVerified(accounts) {
		include.Add(cfg.VerifiedRoleID)
	}

	if family {
		include.Add(cfg.FamilyRoleID)
		if cfg.GuestRoleID != cfg.FamilyRoleID {
			include.Remove(cfg.GuestRoleID)
		}
	} else {
		include.Add(cfg.GuestRoleID)
		if cfg.FamilyRoleID != cfg.GuestRoleID {
			include.Remove(cfg.FamilyRoleID)
		}
	}

	include = include.Intersect(targeted)
	return RoleDecision{
		Include:  include,
		Exclude:  targeted.Minus(include),
		Targeted: targeted,
	}
}

func anyVerified(accounts []Account) bool {
	for _, acc := range accounts {
		if acc.Verified {
			return true
		}
	}
	return false
}

func highestRank(accounts []Account) ClanRank {
	rank := RankNone
	for _, acc := range accounts {
		if acc.ClanRank > rank {
			rank = acc.ClanRank
		}
	}
	return rank
}

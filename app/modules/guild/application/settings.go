package guildservice

import (
	"encoding/json"
	"fmt"
	"strconv"

	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
)

// Setting keys.
const (
	KeyTownHallRoles               = "town_hall_roles"
	KeyLeagueRoles                 = "league_roles"
	KeyGuestRoleID                 = "guest_role_id"
	KeyFamilyRoleID                = "family_role_id"
	KeyVerifiedRoleID              = "verified_role_id"
	KeyAllowNonFamilyTownHallRoles = "allow_non_family_town_hall_roles"
	KeyAllowNonFamilyLeagueRoles   = "allow_non_family_league_roles"
	KeyVerifiedOnlyClanRoles       = "verified_only_clan_roles"
	KeyNicknameEnabled             = "nickname_enabled"
	KeyFamilyNicknameFormat        = "family_nickname_format"
	KeyNonFamilyNicknameFormat     = "non_family_nickname_format"
)

// Nickname formats used when a guild enables nicknames without templates.
const (
	DefaultFamilyNicknameFormat    = "{NAME} | {ALIAS}"
	DefaultNonFamilyNicknameFormat = "{NAME} | {TH}"
)

type settingKind int

const (
	kindRoleMap settingKind = iota
	kindRoleID
	kindBool
	kindString
)

var settingKinds = map[string]settingKind{
	KeyTownHallRoles:               kindRoleMap,
	KeyLeagueRoles:                 kindRoleMap,
	KeyGuestRoleID:                 kindRoleID,
	KeyFamilyRoleID:                kindRoleID,
	KeyVerifiedRoleID:              kindRoleID,
	KeyAllowNonFamilyTownHallRoles: kindBool,
	KeyAllowNonFamilyLeagueRoles:   kindBool,
	KeyVerifiedOnlyClanRoles:       kindBool,
	KeyNicknameEnabled:             kindBool,
	KeyFamilyNicknameFormat:        kindString,
	KeyNonFamilyNicknameFormat:     kindString,
}

// ValidateSetting checks that value decodes as the type of key.
func ValidateSetting(key string, value json.RawMessage) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, key)
	}
	var err error
	switch kind {
	case kindRoleMap:
		_, err = decodeRoleMap(value)
	case kindRoleID, kindString:
		var s string
		err = json.Unmarshal(value, &s)
	case kindBool:
		var b bool
		err = json.Unmarshal(value, &b)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSetting, key, err)
	}
	return nil
}

// decodeRoleMap reads {"13": "roleId"} into a level keyed map.
func decodeRoleMap(value json.RawMessage) (map[int]rolesyncdomain.RoleID, error) {
	var raw map[string]string
	if err := json.Unmarshal(value, &raw); err != nil {
		return nil, err
	}
	out := make(map[int]rolesyncdomain.RoleID, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("key %q is not a number", k)
		}
		if v != "" {
			out[n] = rolesyncdomain.RoleID(v)
		}
	}
	return out, nil
}

// settingsReader decodes stored settings, tolerating missing or corrupt values.
type settingsReader struct {
	values map[string]json.RawMessage
	bad    []string
}

func (r *settingsReader) roleMap(key string) map[int]rolesyncdomain.RoleID {
	raw, ok := r.values[key]
	if !ok {
		return map[int]rolesyncdomain.RoleID{}
	}
	m, err := decodeRoleMap(raw)
	if err != nil {
		r.bad = append(r.bad, key)
		return map[int]rolesyncdomain.RoleID{}
	}
	return m
}

func (r *settingsReader) str(key, def string) string {
	raw, ok := r.values[key]
	if !ok {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		r.bad = append(r.bad, key)
		return def
	}
	return s
}

func (r *settingsReader) boolean(key string) bool {
	raw, ok := r.values[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		r.bad = append(r.bad, key)
		return false
	}
	return b
}

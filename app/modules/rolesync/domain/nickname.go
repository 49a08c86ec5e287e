package rolesyncdomain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MaxNicknameLength is the platform limit for nicknames, in characters.
const MaxNicknameLength = 32

// NicknameAction discriminates NicknameDecision.
type NicknameAction int

const (
	NicknameNoAction NicknameAction = iota
	NicknameSet
	NicknameUnset
	NicknameDeclined
)

func (a NicknameAction) String() string {
	switch a {
	case NicknameSet:
		return "set"
	case NicknameUnset:
		return "unset"
	case NicknameDeclined:
		return "declined"
	default:
		return "no_action"
	}
}

// NicknameDecision is the outcome of formatting a member's nickname.
// Value is only meaningful for NicknameSet, Reason only for NicknameDeclined.
type NicknameDecision struct {
	Action NicknameAction
	Value  string
	Reason string
}

func SetName(v string) NicknameDecision { return NicknameDecision{Action: NicknameSet, Value: v} }
func Unset() NicknameDecision { return NicknameDecision{Action: NicknameUnset} }
func NoAction() NicknameDecision { return NicknameDecision{Action: NicknameNoAction} }
func Declined(reason string) NicknameDecision {
	return NicknameDecision{Action: NicknameDeclined, Reason: reason}
}

// Mutates reports whether applying the decision edits the member.
func (d NicknameDecision) Mutates() bool {
	return d.Action == NicknameSet || d.Action == NicknameUnset
}

var tokenPattern = regexp.MustCompile(`\{([A-Za-z_]+)\}`)

// FormatNickname computes the nickname the member should carry.
func FormatNickname(accounts []Account, member Member, guild GuildState, cfg *GuildRoles) NicknameDecision {
	if ok, reason := guild.CanEditNickname(member); !ok {
		return Declined(reason)
	}
	if !cfg.Nicknames.Enabled {
		return NoAction()
	}
	if len(accounts) == 0 {
		if member.Nick == "" {
			return NoAction()
		}
		return Unset()
	}

	sorted := make([]Account, len(accounts))
	copy(sorted, accounts)
	SortAccounts(sorted)
	primary := sorted[0]

	family := cfg.IsFamilyClan(primary.ClanTag)
	format := cfg.Nicknames.NonFamilyFormat
	if family {
		format = cfg.Nicknames.FamilyFormat
	}
	if strings.TrimSpace(format) == "" {
		return NoAction()
	}

	alias := ""
	if family {
		alias = cfg.ClanRoles[primary.ClanTag].Alias
	}
	if alias == "" {
		alias = AbbreviateClanName(primary.ClanName)
	}

	values := map[string]string{
		"NAME":             primary.Name,
		"PLAYER_NAME":      primary.Name,
		"TH":               townHall(primary.TownHallLevel),
		"TOWN_HALL":        townHall(primary.TownHallLevel),
		"TH_SMALL":         superscript(townHall(primary.TownHallLevel)),
		"ROLE":             primary.ClanRank.ShortLabel(),
		"CLAN_ROLE":        primary.ClanRank.ShortLabel(),
		"ALIAS":            alias,
		"CLAN_ALIAS":       alias,
		"CLAN":             primary.ClanName,
		"CLAN_NAME":        primary.ClanName,
		"DISCORD":          firstNonEmpty(member.GlobalName, member.Username),
		"DISPLAY_NAME":     firstNonEmpty(member.GlobalName, member.Username),
		"USERNAME":         member.Username,
		"DISCORD_USERNAME": member.Username,
	}

	out := tokenPattern.ReplaceAllStringFunc(format, func(tok string) string {
		key := strings.ToUpper(tok[1 : len(tok)-1])
		if v, ok := values[key]; ok {
			return v
		}
		return tok
	})
	out = truncate(strings.Join(strings.Fields(out), " "), MaxNicknameLength)

	if out == "" {
		if member.Nick == "" {
			return NoAction()
		}
		return Unset()
	}
	if out == member.Nick {
		return NoAction()
	}
	return SetName(out)
}

// AbbreviateClanName derives a short alias: the initials of a multi-word name,
// or the first three characters of a single word, upper-cased.
func AbbreviateClanName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch len(words) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(truncate(words[0], 3))
	}
	var b strings.Builder
	for _, w := range words {
		r := []rune(w)
		b.WriteRune(unicode.ToUpper(r[0]))
	}
	return b.String()
}

func townHall(level int) string {
	if level <= 0 {
		return ""
	}
	return strconv.Itoa(level)
}

var superscriptDigits = []rune("⁰¹²³⁴⁵⁶⁷⁸⁹")

func superscript(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(superscriptDigits[r-'0'])
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

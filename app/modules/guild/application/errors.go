package guildservice

import "errors"

// Validation failures returned as the failure payload of a result.
var (
	ErrInvalidGuildID  = errors.New("invalid guild ID")
	ErrUnknownSetting  = errors.New("unknown setting")
	ErrInvalidSetting  = errors.New("invalid setting value")
	ErrInvalidClanTag  = errors.New("invalid clan tag")
	ErrSettingNotFound = errors.New("setting not found")
	ErrClanNotLinked   = errors.New("clan not linked")
)

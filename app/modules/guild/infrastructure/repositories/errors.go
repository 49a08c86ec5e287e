package guilddb

import "errors"

var (
	// ErrNotFound is returned when a setting or clan link does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNoRowsAffected is returned when a DELETE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)

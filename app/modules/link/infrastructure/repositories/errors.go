package linkdb

import "errors"

var (
	ErrNotFound       = errors.New("linked account not found")
	ErrNoRowsAffected = errors.New("no rows affected")
)

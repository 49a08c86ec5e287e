package linkservice

import "errors"

var (
	ErrInvalidUserID    = errors.New("user id is required")
	ErrInvalidTag       = errors.New("invalid player tag")
	ErrAlreadyLinked    = errors.New("player tag is linked to another user")
	ErrAccountNotLinked = errors.New("player tag is not linked")
	ErrInvalidOrder     = errors.New("order must list every linked tag exactly once")
)

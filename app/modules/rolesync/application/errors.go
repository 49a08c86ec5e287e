package rolesyncservice

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfigurationAbsent means the guild maps no roles and has nicknames
	// disabled. Callers treat it as nothing to do.
	ErrConfigurationAbsent = errors.New("no clans configured")
	// ErrPermissionInsufficient means the bot can manage neither roles nor nicknames.
	ErrPermissionInsufficient = errors.New("insufficient permission")
	// ErrHierarchyViolation marks a member the bot cannot edit because of role order.
	ErrHierarchyViolation = errors.New("member outranks the bot")
	// ErrUpstream wraps timeouts and rate limiting from external collaborators.
	ErrUpstream = errors.New("upstream unavailable")
)

// Errors returned by MemberDirectory implementations.
var (
	ErrForbidden = errors.New("forbidden")
	ErrNotFound  = errors.New("not found")
)

// RateLimitedError is returned when the platform asks the caller to back off.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Is lets errors.Is(err, ErrUpstream) match rate limiting.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrUpstream
}

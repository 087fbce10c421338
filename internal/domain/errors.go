package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("insufficient scope")
	ErrRateLimited         = errors.New("rate limited")
	ErrPolicyState         = errors.New("invalid policy state")
	ErrInsufficientCapital = errors.New("insufficient pool capital")
	ErrNetwork             = errors.New("network failure")
	ErrVenueUnavailable    = errors.New("venue unavailable")
	ErrLockHeld            = errors.New("lock already held")
)

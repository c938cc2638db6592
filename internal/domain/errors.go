package domain

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrUserNotFound   = errors.New("user not found")
)

var (
	ErrInsufficientStock = errors.New("not enough tickets available")
	ErrConflict          = errors.New("conflicting state")
	ErrUnavailable       = errors.New("store temporarily unavailable")
	ErrUnauthorized      = errors.New("not allowed")
)

var (
	ErrValidation = errors.New("validation error")
)

// NotFound reports whether err is any of the absent-record errors.
func NotFound(err error) bool {
	return errors.Is(err, ErrTicketNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

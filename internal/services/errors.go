package services

import (
	"errors"
	"fmt"
)

// Every service error wraps one of these; handlers map them onto HTTP
// statuses with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("not permitted")
	ErrInvalidRole        = errors.New("invalid role")
	ErrNotFound           = errors.New("not found")
	ErrSlotUnavailable    = errors.New("slot unavailable")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrReviewNotAllowed   = errors.New("review not allowed")
	ErrConflict           = errors.New("conflict")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

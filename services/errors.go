package services

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrProjectCancelled   = errors.New("project has been cancelled")
	ErrNotOwner           = errors.New("only the project owner can do that")
	ErrCannotCancel       = errors.New("project has raised 25% or more of its target and can no longer be cancelled")
	ErrAlreadyReported    = errors.New("you have already reported this")
	ErrInvalidToken       = errors.New("activation link is invalid")
	ErrTokenExpired       = errors.New("activation link has expired")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInactiveAccount    = errors.New("your account is not activated, please check your email for the activation link")
	ErrActivationEmail    = errors.New("error sending activation email, please try again")
)

// ValidationError carries the user-facing messages for a rejected form.
// Nothing is persisted when it is returned.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func invalid(messages ...string) error {
	return &ValidationError{Messages: messages}
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

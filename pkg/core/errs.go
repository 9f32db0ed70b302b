package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to chat users. Every error produced by a handler
// classifies into one of them through Kind.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNotEntitled          = errors.New("not entitled")
	ErrNotRegistered        = errors.New("account not registered")
	ErrProviderUnavailable  = errors.New("provider unavailable")
	ErrRateLimited          = errors.New("rate limited")
	ErrConfirmationTimedOut = errors.New("confirmation timed out")
	ErrConfirmationDeclined = errors.New("confirmation declined")
	ErrInternal             = errors.New("internal error")
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderNotFound     = errors.New("order not found")
	ErrResetCooldown     = errors.New("reset cooldown active")
	ErrAlreadyPending    = errors.New("confirmation already pending")
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate entry")
	ErrLimitReached      = errors.New("limit reached")
	ErrUnsupported       = errors.New("unsupported request")
)

var kinds = []error{
	ErrInvalidArgument,
	ErrNotEntitled,
	ErrNotRegistered,
	ErrProviderUnavailable,
	ErrRateLimited,
	ErrConfirmationTimedOut,
	ErrConfirmationDeclined,
}

// UserError carries the notice shown in chat next to its kind.
type UserError struct {
	Kind        error
	Title       string
	Description string
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Title)
}

func (e *UserError) Unwrap() error {
	return e.Kind
}

// NewUserError builds a UserError with a formatted title.
func NewUserError(kind error, format string, args ...any) *UserError {
	return &UserError{Kind: kind, Title: fmt.Sprintf(format, args...)}
}

// Kind classifies err into one of the user facing kinds. Domain sentinels map
// onto InvalidArgument; anything unknown is internal.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	switch {
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrResetCooldown),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrLimitReached),
		errors.Is(err, ErrUnsupported),
		errors.Is(err, ErrNotFound):
		return ErrInvalidArgument
	case errors.Is(err, ErrAlreadyPending):
		return ErrRateLimited
	}
	return ErrInternal
}

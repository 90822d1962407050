package store

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-food-court/internal/orders"
)

var (
	// ErrBusy means the file lock could not be taken before the timeout.
	// Nothing was changed; the caller may retry.
	ErrBusy   = errors.New("database is busy, please retry")
	ErrClosed = errors.New("store is closed")

	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrInvalidName        = errors.New("name must be at least 2 characters")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthError carries one of the ErrInvalid*/ErrWeak*/ErrEmailTaken reasons.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(reason error) error { return &AuthError{Err: reason} }

type TransitionError struct {
	OrderID  string
	From, To orders.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

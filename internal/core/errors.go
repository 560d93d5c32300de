package core

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of all field-level validation failures.
// Specific validation errors wrap it so callers can match the whole class
// with errors.Is.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrInvalidType        = fmt.Errorf("%w: type must be 'income' or 'expense'", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: date must be in YYYY-MM-DD format", ErrValidation)
	ErrInvalidRole        = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrInvalidCategory    = fmt.Errorf("%w: categoryId does not reference an existing category", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 500 characters)", ErrValidation)
	ErrMissingFields      = fmt.Errorf("%w: required fields missing", ErrValidation)
)

var (
	// ErrUnauthenticated covers missing, malformed, expired, or mismatched tokens
	// and tokens whose user no longer exists.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden is returned when an authenticated caller is not permitted
	// to perform the requested action.
	ErrForbidden = errors.New("insufficient permissions")

	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials carries one message for both unknown email and
	// wrong password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDuplicateEmail = errors.New("email already used")
	ErrDuplicateName  = errors.New("name already exists")
)

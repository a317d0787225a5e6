// Package common defines sentinel errors and small helpers shared by the
// LabKeeper packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Store-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrEmptyStore      = errors.New("store has no rows")

	// Auth errors.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrSelfDelete     = errors.New("cannot delete the currently authenticated user")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// Validation / lifecycle errors.
	ErrorValidation      = errors.New("validation error")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrPasswordTooShort  = errors.New("password is too short")
)

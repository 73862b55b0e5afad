// Package common defines shared constants, helpers and sentinel errors used
// across the SIC server layers. Callers should use errors.Is to match these
// values; services wrap them with extra context via fmt.Errorf("...: %w").
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Validation errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidConfirmation is reported when a destructive site-wide action
	// is requested with the wrong confirmation phrase. It matches
	// ErrInvalidArgument as well.
	ErrInvalidConfirmation = fmt.Errorf("%w: invalid confirmation phrase", ErrInvalidArgument)

	// Moderation errors.
	ErrNotBlocked = errors.New("account is not blocked")

	// Token errors. Both are reported wrapped in ErrUnauthorized by the
	// authenticator so callers can tell "log in again" from "reject".
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

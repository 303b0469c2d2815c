// Package common defines shared constants and sentinel errors used across
// the gophtasks server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token, missing permission).
	ErrInvalidToken     = errors.New("invalid token")
	ErrPermissionDenied = errors.New("insufficient permissions")

	// Token lifecycle errors.
	ErrTokenExpired         = errors.New("token expired")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// OAuth login errors.
	ErrInvalidUserData  = errors.New("invalid user data")
	ErrProcessingFailed = errors.New("failed to process user authentication")
)

// Unauthorized wraps cause so that errors.Is matches both ErrorUnauthorized
// and the specific cause.
func Unauthorized(cause error) error {
	return errors.Join(ErrorUnauthorized, cause)
}

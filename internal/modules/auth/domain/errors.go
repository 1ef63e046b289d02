package domain

import "errors"

var (
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidGoogleToken = errors.New("invalid google token")

	// ErrTokenMissing and ErrTokenInvalid are the two ways identity verification fails.
	ErrTokenMissing = errors.New("auth token missing")
	ErrTokenInvalid = errors.New("invalid or expired token")
)

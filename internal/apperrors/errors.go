package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")

	ErrAuthTokenNotFound  = errors.New("auth token not found")
	ErrSigningKeyTooShort = errors.New("signing key is too short")

	ErrOneTimeTokenInvalid = errors.New("one-time token is invalid")
	ErrOneTimeTokenUsed    = errors.New("one-time token is used or expired")
)

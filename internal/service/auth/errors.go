package auth

import "errors"

// Common errors returned by the auth service.
var (
	// ErrInvalidCredentials is returned when the email or password is wrong.
	// Deliberately indistinguishable between the two cases.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned when a token fails validation for any
	// reason: bad signature, malformed, wrong signing method.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("token expired")
)

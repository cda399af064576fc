package auth

import "errors"

var (
	// ErrInvalidToken indicates a token with a bad signature, unexpected class, or past its expiry.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidCredentials indicates a password did not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordTooLong indicates a password bcrypt cannot hash in full.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

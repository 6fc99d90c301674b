package auth

import "errors"

var (
	// ErrUserExists is returned when a username or email is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrUserNotFound is returned when a user ID does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidUser is returned for missing or malformed user fields.
	ErrInvalidUser = errors.New("invalid user")

	// ErrPasskeyNotFound is returned when a user has no passkey with the given ID.
	ErrPasskeyNotFound = errors.New("passkey not found")

	// ErrInvalidToken is returned for an unparseable, forged or revoked token.
	ErrInvalidToken = errors.New("invalid token")
)

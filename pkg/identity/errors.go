package identity

import "errors"

var (
	// ErrUserNotFound is returned by storage lookups for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned for any authentication failure.
	// Unknown username and wrong password are indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidUsername is returned for usernames failing validation.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrWeakPassword is returned for passwords outside the allowed length range.
	ErrWeakPassword = errors.New("password does not meet security requirements")
)

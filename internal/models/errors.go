package models

import "errors"

// Account failure kinds. Every caller-facing failure of the account service is
// one of these sentinels; handlers pick responses with errors.Is. Anything else
// is an unexpected store error and must not leak its message to clients.
var (
	ErrUsernameTaken      = errors.New("username already in use")
	ErrEmailTaken         = errors.New("email already in use")
	ErrPasswordTaken      = errors.New("password already in use")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

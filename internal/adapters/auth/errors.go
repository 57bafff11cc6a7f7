package auth

import "errors"

// Sentinel kinds for authentication and authorization errors.
var (
	ErrNoToken        = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid bearer token")
	ErrWrongProvider  = errors.New("wrong identity provider")
	ErrNotAllowListed = errors.New("email not on admin allow-list")
)

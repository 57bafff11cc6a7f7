package service

import "errors"

// Typed error kinds returned by every operation. The HTTP layer maps these
// to status codes; callers use errors.Is.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
)

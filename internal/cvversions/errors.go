package cvversions

import "errors"

var (
	// ErrNotFound is the normal outcome when no CV exists yet for the scope.
	ErrNotFound = errors.New("cv not found")
	// ErrInvalidInput covers empty users, companies, or unusable content.
	ErrInvalidInput = errors.New("invalid input")
)

package ports

import "errors"

var (
	// ErrNotFound reports content the platform no longer serves.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized reports rejected credentials; no run can progress past it.
	ErrUnauthorized = errors.New("unauthorized")
)

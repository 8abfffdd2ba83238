package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("persistence: already exists")
	// ErrConstraintViolation is returned when a record breaks a schema constraint
	// other than uniqueness.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)

package application

import "errors"

var (
	// ErrUnauthorized is returned when no valid session backs the request.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrDuplicateUser is returned when a signup reuses an existing username.
	ErrDuplicateUser = errors.New("application: username already taken")
	// ErrInvalidCredentials is returned when a username and password do not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was logged out.
	ErrSessionRevoked = errors.New("application: session revoked")
	// ErrOwnerRequired is returned when an event operation has no owning user.
	ErrOwnerRequired = errors.New("application: owner required")
	// ErrInvalidDateTime is wrapped by validation errors for unparsable event dates or times.
	ErrInvalidDateTime = errors.New("application: invalid date or time")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string

	cause error
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.cause != nil {
		return "validation failed: " + v.cause.Error()
	}
	return "validation failed"
}

// Unwrap exposes the sentinel the validation failure wraps, if any.
func (v *ValidationError) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.cause
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// addCause records a field error that stems from a sentinel condition.
func (v *ValidationError) addCause(field, message string, cause error) {
	v.add(field, message)
	if v.cause == nil {
		v.cause = cause
	}
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
	if v.cause == nil {
		v.cause = other.cause
	}
}

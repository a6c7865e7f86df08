package domain

import "errors"

var (
	// ErrTransport indicates the request never produced a usable response.
	ErrTransport = errors.New("transport failure")
	// ErrUnauthorized indicates a missing or rejected credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation indicates input rejected before or by the server.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a stale identifier.
	ErrNotFound = errors.New("not found")
)

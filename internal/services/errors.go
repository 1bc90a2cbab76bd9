package services

import "errors"

// Common service errors. Handlers map these onto HTTP status codes and the
// {success:false, error, message} envelope; they are never panicked across the
// public API boundary.
var (
	ErrValidation     = errors.New("invalid input")
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
	ErrConflict       = errors.New("local and remote versions diverge")
	ErrSyncTransport  = errors.New("remote backend unreachable")
	ErrIntegrity      = errors.New("allocation would violate distribution invariant")
	ErrInvalidState   = errors.New("invalid state transition")
	ErrSyncInProgress = errors.New("a sync run is already in progress")
)

package session

import "errors"

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrReadOnly             = errors.New("session is read-only")
	ErrLayoutNotFound       = errors.New("layout not found")
	ErrConfirmationRequired = errors.New("layout is not empty; confirmation required")
	ErrLastLayout           = errors.New("cannot delete the last layout")
	ErrInvalidOperation     = errors.New("invalid operation")
	ErrInvalidLayoutOrder   = errors.New("layout order must list every layout exactly once")
	ErrRecoveryPending      = errors.New("unsaved data must be restored or discarded first")
	ErrNothingToRestore     = errors.New("no unsaved data to restore")
	ErrTooManySessions      = errors.New("too many open sessions")
)

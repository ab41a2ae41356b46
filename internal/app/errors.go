package app

import "errors"

// Operation failures are wrapped over these sentinels so the adapter can
// match with errors.Is while the text stays the user-facing reason.
var (
	ErrInvalidParams = errors.New("invalid call parameters")
	ErrNotFound      = errors.New("not found")
	ErrNotAuthorized = errors.New("not authorized")
	ErrCallEnded     = errors.New("call not found or has ended")
	ErrAlreadyJoined = errors.New("already in this call")
	ErrNoPermission  = errors.New("permission denied")
)

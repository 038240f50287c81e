package shared

import "errors"

// ErrNotConfigured indicates an optional collaborator that was not wired at startup.
var ErrNotConfigured = errors.New("not configured")

package stream

import "errors"

// Sentinel errors for the failure modes callers branch on. Plain IO
// failures are wrapped with %w and reach callers as ordinary errors.
var (
	// ErrLockTimeout means the stream lock stayed contended past the
	// writer's wait bound. The stream itself is untouched.
	ErrLockTimeout = errors.New("stream lock wait timed out")

	// ErrDeadline means the operation's context expired. Mutating
	// operations guarantee the lock was released; no partial line was
	// written.
	ErrDeadline = errors.New("stream operation deadline exceeded")
)

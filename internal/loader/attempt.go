package loader

import (
	"errors"

	"sheetsync/internal/storage"
)

type attemptKind int

const (
	attemptLocked attemptKind = iota
	attemptContended
)

// lockAttempt is the result of the exclusive clear. A contended attempt
// carries the reason it was abandoned; the caller always falls back on it.
type lockAttempt struct {
	kind   attemptKind
	reason error
}

func contended(reason error) lockAttempt {
	return lockAttempt{kind: attemptContended, reason: reason}
}

func (a lockAttempt) locked() bool { return a.kind == attemptLocked }

// busy reports whether the attempt lost to another session's lock, as opposed
// to failing for some other reason.
func (a lockAttempt) busy() bool {
	return a.kind == attemptContended && errors.Is(a.reason, storage.ErrLockUnavailable)
}

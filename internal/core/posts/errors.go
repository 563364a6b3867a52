package posts

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipped is matched by every SkipError. A skipped operation made no
	// remote call and left the local list unchanged.
	ErrSkipped = errors.New("operation skipped")

	// ErrNotFound is returned by stores when a record or blob does not exist
	ErrNotFound = errors.New("post not found")
)

// SkipError reports an operation whose precondition was not met.
// It is a silent no-op, not a failure.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("skipped: %s", e.Reason)
}

// Is lets errors.Is(err, ErrSkipped) match any SkipError.
func (e *SkipError) Is(target error) bool {
	return target == ErrSkipped
}

// NewSkipError creates a new skip error
func NewSkipError(reason string) error {
	return &SkipError{Reason: reason}
}

// IsSkipped checks if error is a skipped precondition
func IsSkipped(err error) bool {
	return errors.Is(err, ErrSkipped)
}

// RemoteError wraps any Record Store or Blob Store failure.
type RemoteError struct {
	Err error
	Op  string // e.g. "record.list", "blob.put"
	Key string // record id or blob key, when there is one
}

func (e *RemoteError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("remote %s (%s): %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError creates a new remote error
func NewRemoteError(op, key string, err error) error {
	return &RemoteError{Op: op, Key: key, Err: err}
}

// IsRemote checks if error came from a remote store
func IsRemote(err error) bool {
	var remoteErr *RemoteError
	return errors.As(err, &remoteErr)
}

package retry

import (
	"github.com/rwx-research/conductor/internal/errors"
)

// Error attaches an ErrorKind to the error of a failed attempt
type Error struct {
	Kind ErrorKind
	Err  error
}

// NewError wraps `err` with a kind. A nil error stays nil.
func NewError(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an error. Errors without a kind are unknown.
func KindOf(err error) ErrorKind {
	var retryErr *Error
	if errors.As(err, &retryErr) {
		return retryErr.Kind
	}

	return KindUnknown
}

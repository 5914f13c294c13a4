package remote

import (
	"errors"
	"fmt"
)

// Kind classifies a failed remote call.
type Kind int

const (
	// KindUnknown is any error that did not come from this package.
	KindUnknown Kind = iota
	// KindMisconfigured means the server answered but rejected the request.
	// Retrying will not help.
	KindMisconfigured
	// KindTransient covers transport failures and unreadable answers.
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindMisconfigured:
		return "misconfigured"
	case KindTransient:
		return "transient"
	case KindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	ErrMisconfigured = errors.New("remote server rejected request")
	ErrTransient     = errors.New("remote server unreachable")
)

// Error is returned by every Client operation.
type Error struct {
	Kind      Kind
	Operation string
	// Status is the HTTP status code, zero when no response was received.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Operation, e.Kind, e.Status)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Kind, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Operation, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches ErrMisconfigured and ErrTransient against the error's Kind.
func (e *Error) Is(target error) bool {
	switch target { //nolint:errorlint // sentinel identity
	case ErrMisconfigured:
		return e.Kind == KindMisconfigured
	case ErrTransient:
		return e.Kind == KindTransient
	default:
		return false
	}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Kind
	}

	return KindUnknown
}

package retry

import "errors"

// Error is implemented by errors that know whether they are worth retrying.
// The default predicate stops on any error in the chain whose Temporary
// method returns false.
type Error interface {
	Temporary() bool
	error
}

type permanentError struct {
	error
}

func (e *permanentError) Temporary() bool { return false }

func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort marks err as permanent. The default predicate stops on it, and the
// loop returns err itself rather than the wrapper.
//
//	if resp.StatusCode == http.StatusNotFound {
//	    return retry.Abort(errNoSuchModule)
//	}
func Abort(err error) Error {
	return &permanentError{err}
}

// IsTemporary is the default retry predicate.
func IsTemporary(err error) bool {
	var retryErr Error
	if errors.As(err, &retryErr) {
		return retryErr.Temporary()
	}

	return true
}

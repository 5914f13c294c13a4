// Package errors accumulates validation failures so that every problem with
// an input is reported at once instead of one per attempt.
package errors

import (
	"errors"
	"fmt"
)

// Collection is a thread-unsafe accumulator of errors. The zero value is
// ready to use.
type Collection struct {
	errors []error
}

// Add appends err to the collection. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Check adds a formatted error unless ok holds.
func (c *Collection) Check(ok bool, format string, args ...any) {
	if !ok {
		c.errors = append(c.errors, fmt.Errorf(format, args...)) //nolint:err113
	}
}

// HasError reports whether anything was collected.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// GetError returns nil, the single collected error, or all of them joined.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}

// Wrap returns nil when the collection is empty, and otherwise the collected
// errors wrapped in sentinel so callers can match on it with errors.Is.
func (c *Collection) Wrap(sentinel error) error {
	if !c.HasError() {
		return nil
	}

	return fmt.Errorf("%w: %w", sentinel, c.GetError())
}

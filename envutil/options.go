package envutil

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
)

var ErrOutOfRange = errors.New("value out of range")

// Option is a function which modifies a Reader. It's used by
// functions like String and Bool so that the caller can easily
// provide defaults, missing errors and validation.
type Option[T any] func(Reader[T]) Reader[T]

// Default allows you to provide a default value for the Reader.
func Default[T any](dfl T) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithDefault(dfl)
	}
}

// IfMissing allows you to provide an error to return if the
// Reader is missing a value.
func IfMissing[T any](err error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.WithErrorIfMissing(err)
	}
}

// Validate runs f on the Reader's value. If f returns an error, the
// Reader carries that error.
func Validate[T any](f func(T) error) Option[T] {
	return func(rdr Reader[T]) Reader[T] {
		return rdr.Map(func(val T) (T, error) {
			return val, f(val)
		})
	}
}

// Between rejects values outside [lo, hi]. NaN is never in range.
func Between[T cmp.Ordered](lo, hi T) Option[T] {
	return Validate(func(v T) error {
		if !(v >= lo && v <= hi) {
			return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, v, lo, hi)
		}

		return nil
	})
}

// Positive rejects zero, negative and NaN values.
func Positive[T cmp.Ordered]() Option[T] {
	return Validate(func(v T) error {
		var zero T
		if !(v > zero) {
			return fmt.Errorf("%w: %v must be positive", ErrOutOfRange, v)
		}

		return nil
	})
}

// NonEmpty rejects blank strings.
func NonEmpty() Option[string] {
	return Validate(func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: empty string", ErrOutOfRange)
		}

		return nil
	})
}

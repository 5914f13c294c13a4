package logger

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
)

// AnnotateError attaches slog key-value pairs to err. When the error is later
// logged through a handler installed by ConfigureLogging, the pairs show up as
// regular attributes next to the error. Returns nil if err is nil.
//
//	return logger.AnnotateError(err, "module", "fan", "status", resp.StatusCode)
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	errAttrs := make([]slog.Attr, 0, r.NumAttrs())

	r.Attrs(func(attr slog.Attr) bool {
		errAttrs = append(errAttrs, attr)

		return true
	})

	return &slogError{
		err:   err,
		attrs: errAttrs,
	}
}

// ErrorAttrs returns the attributes attached by AnnotateError anywhere in
// err's chain.
func ErrorAttrs(err error) []slog.Attr {
	var se *slogError
	if !errors.As(err, &se) {
		return nil
	}

	return slices.Concat(se.attrs, ErrorAttrs(se.err))
}

type slogError struct {
	err   error
	attrs []slog.Attr
}

func (s *slogError) Error() string {
	return s.err.Error()
}

func (s *slogError) Unwrap() error {
	return s.err
}

// annotatedErrorHandler expands errors created by AnnotateError into their
// attributes before handing the record to inner.
type annotatedErrorHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*annotatedErrorHandler)(nil)

func (s *annotatedErrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.inner.Enabled(ctx, level)
}

func (s *annotatedErrorHandler) Handle(ctx context.Context, record slog.Record) error {
	var (
		baseAttrs []slog.Attr
		errAttrs  []slog.Attr
	)

	record.Attrs(func(attr slog.Attr) bool {
		baseAttrs = append(baseAttrs, attr)

		if err, ok := attr.Value.Any().(error); ok {
			errAttrs = append(errAttrs, ErrorAttrs(err)...)
		}

		return true
	})

	if len(errAttrs) == 0 {
		return s.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(baseAttrs...)
	r.AddAttrs(errAttrs...)

	return s.inner.Handle(ctx, r)
}

func (s *annotatedErrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotatedErrorHandler{inner: s.inner.WithAttrs(attrs)}
}

func (s *annotatedErrorHandler) WithGroup(name string) slog.Handler {
	return &annotatedErrorHandler{inner: s.inner.WithGroup(name)}
}

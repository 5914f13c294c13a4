// Package should holds cleanup helpers for operations that should succeed but
// whose failure is not worth returning. Failures are logged, which makes the
// helpers safe to defer.
package should

import (
	"context"
	"io"

	"github.com/amp-labs/chamber/logger"
)

// Close closes closer and logs msg at error level if that fails.
//
//	defer should.Close(ctx, file, "closing calibration file")
func Close(ctx context.Context, closer io.Closer, msg string) {
	if err := closer.Close(); err != nil {
		logger.Get(ctx).ErrorContext(ctx, msg, "error", err)
	}
}

// DrainAndClose reads body to EOF before closing it, so the underlying
// connection can be reused. Read and close failures are logged with msg.
func DrainAndClose(ctx context.Context, body io.ReadCloser, msg string) {
	if _, err := io.Copy(io.Discard, body); err != nil {
		logger.Get(ctx).WarnContext(ctx, msg, "error", err)
	}

	Close(ctx, body, msg)
}

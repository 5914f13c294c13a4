package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/amp-labs/chamber/logger"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id of a logged request.
const RequestIDHeader = "X-Request-Id"

// NewLoggingTransport wraps transport (http.DefaultTransport when nil) so
// that every request is logged at debug level with a UUIDv7 correlation id,
// and every transport failure at warn level. The id is also sent to the
// server in RequestIDHeader.
func NewLoggingTransport(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &loggingTransport{transport: transport}
}

type loggingTransport struct {
	transport http.RoundTripper
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (l *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	uuid7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating UUID: %w", err)
	}

	correlationID := uuid7.String()

	ctx := request.Context()
	log := logger.Get(ctx).With(
		"correlation_id", correlationID,
		"method", request.Method,
		"url", request.URL.Redacted(),
	)

	request = request.Clone(ctx)
	request.Header.Set(RequestIDHeader, correlationID)

	log.DebugContext(ctx, "HTTP request")

	start := time.Now()

	response, err := l.transport.RoundTrip(request)
	if err != nil {
		log.WarnContext(ctx, "HTTP request failed",
			"duration", time.Since(start),
			"error", err)

		return response, err
	}

	log.Log(ctx, slog.LevelDebug, "HTTP response",
		"status", response.StatusCode,
		"duration", time.Since(start))

	return response, nil
}

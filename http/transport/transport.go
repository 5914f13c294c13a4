// Package transport builds the http.RoundTripper used to talk to the chamber
// control server. Timeouts and pooling come from the environment:
//
//   - HTTP_TRANSPORT_PREFER_POOLED: keep connections alive (default: true)
//   - HTTP_TRANSPORT_MAX_IDLE_CONNS: maximum idle connections (default: 100)
//   - HTTP_TRANSPORT_IDLE_CONN_TIMEOUT: idle connection timeout (default: 90s)
//   - HTTP_TRANSPORT_RESPONSE_HEADER_TIMEOUT: wait for response headers (default: 30s)
//   - HTTP_TRANSPORT_DIAL_TIMEOUT: connection dial timeout (default: 10s)
//   - HTTP_TRANSPORT_DIAL_KEEPALIVE: TCP keep-alive duration (default: 30s)
//   - HTTP_TRANSPORT_DNS_CACHE: resolve through the shared DNS cache (default: false)
package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/amp-labs/chamber/envutil"
)

const (
	defaultIdleConnTimeout       = 90 * time.Second
	defaultMaxIdleConns          = 100
	defaultResponseHeaderTimeout = 30 * time.Second
	defaultDialTimeout           = 10 * time.Second
	defaultKeepAlive             = 30 * time.Second
)

// New returns an *http.Transport tuned from the environment and opts. Build
// one per process and share it.
func New(ctx context.Context, opts ...Option) *http.Transport {
	cfg := readOptions(ctx, opts...)

	maxIdleConns := envutil.Int(ctx, "HTTP_TRANSPORT_MAX_IDLE_CONNS",
		envutil.Default(defaultMaxIdleConns)).
		ValueOrElse(defaultMaxIdleConns)

	idleConnTimeout := envutil.Duration(ctx, "HTTP_TRANSPORT_IDLE_CONN_TIMEOUT",
		envutil.Default(defaultIdleConnTimeout)).
		ValueOrElse(defaultIdleConnTimeout)

	responseHeaderTimeout := envutil.Duration(ctx, "HTTP_TRANSPORT_RESPONSE_HEADER_TIMEOUT",
		envutil.Default(defaultResponseHeaderTimeout)).
		ValueOrElse(defaultResponseHeaderTimeout)

	dialTimeout := envutil.Duration(ctx, "HTTP_TRANSPORT_DIAL_TIMEOUT",
		envutil.Default(defaultDialTimeout)).
		ValueOrElse(defaultDialTimeout)

	keepAlive := envutil.Duration(ctx, "HTTP_TRANSPORT_DIAL_KEEPALIVE",
		envutil.Default(defaultKeepAlive)).
		ValueOrElse(defaultKeepAlive)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlive,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		DisableKeepAlives:     cfg.DisableConnectionPooling,
	}

	if cfg.EnableDNSCache {
		useDNSCacheDialer(transport, dialer)
	}

	return transport
}

package transport

import (
	"context"

	"github.com/amp-labs/chamber/envutil"
)

type Option func(*config)

type config struct {
	DisableConnectionPooling bool
	EnableDNSCache           bool
}

func DisableConnectionPooling(c *config) {
	c.DisableConnectionPooling = true
}

func EnableDNSCache(c *config) {
	c.EnableDNSCache = true
}

func readOptions(ctx context.Context, opts ...Option) *config {
	cfg := &config{
		DisableConnectionPooling: !envutil.Bool(ctx, "HTTP_TRANSPORT_PREFER_POOLED",
			envutil.Default(true)).ValueOrElse(true),
		EnableDNSCache: envutil.Bool(ctx, "HTTP_TRANSPORT_DNS_CACHE",
			envutil.Default(false)).ValueOrElse(false),
	}

	for _, c := range opts {
		if c != nil {
			c(cfg)
		}
	}

	return cfg
}

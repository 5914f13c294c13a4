package transport

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/rs/dnscache"
)

var errNoAddresses = errors.New("no addresses resolved")

// dnsResolver is shared by every transport built with EnableDNSCache.
var dnsResolver = &dnscache.Resolver{} //nolint:gochecknoglobals

// RefreshDNS drops stale cache entries. Long running processes should call
// it periodically; clear=true also forgets entries that are still in use.
func RefreshDNS(clear bool) {
	dnsResolver.Refresh(clear)
}

// useDNSCacheDialer resolves hosts through dnsResolver and tries every
// returned address in turn.
func useDNSCacheDialer(trans *http.Transport, dialer *net.Dialer) {
	trans.DialContext = func(ctx context.Context, network string, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := dnsResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		err = errNoAddresses

		for _, ip := range ips {
			var conn net.Conn

			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
		}

		return nil, err
	}
}

// Package safehttp provides HTTP transports for outbound calls to
// operator-configured endpoints.
package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// DialTimeout bounds connection setup.
const DialTimeout = 5 * time.Second

// NewTransport returns a transport that rejects connections to private,
// loopback or link-local addresses to reduce SSRF risk. The check runs on
// the connected address, so DNS answers cannot bypass it.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: DialTimeout}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}
		if !IsPublic(ip) {
			conn.Close()
			return nil, fmt.Errorf("access to private IP %s is denied", ip)
		}
		return conn, nil
	}
	return t
}

// NewClient returns a client using NewTransport.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: NewTransport(), Timeout: timeout}
}

// IsPublic reports whether ip is routable outside the host's networks.
func IsPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified())
}

// Package urlvalidation guards outbound requests against endpoints that
// resolve into private or reserved address space.
package urlvalidation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// ErrBlockedAddress is returned when a host resolves to a reserved address.
var ErrBlockedAddress = errors.New("address not allowed")

// Resolver looks up the addresses of a host.
type Resolver func(ctx context.Context, host string) ([]netip.Addr, error)

// Option configures validation.
type Option func(*settings)

type settings struct {
	allowPrivate bool
	httpsOnly    bool
	resolve      Resolver
}

// AllowPrivateIPs disables the address check. For local development and
// tests only.
func AllowPrivateIPs() Option {
	return func(s *settings) { s.allowPrivate = true }
}

// RequireHTTPS rejects plain http URLs.
func RequireHTTPS() Option {
	return func(s *settings) { s.httpsOnly = true }
}

// WithResolver replaces DNS resolution.
func WithResolver(r Resolver) Option {
	return func(s *settings) { s.resolve = r }
}

func lookup(ctx context.Context, host string) ([]netip.Addr, error) {
	return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
}

// Validate checks that rawURL is an absolute http(s) URL whose host only
// resolves to public addresses.
func Validate(ctx context.Context, rawURL string, opts ...Option) error {
	s := settings{resolve: lookup}
	for _, opt := range opts {
		opt(&s)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if s.httpsOnly {
			return fmt.Errorf("URL %q must use https", rawURL)
		}
	default:
		return fmt.Errorf("URL scheme %q not allowed; use http or https", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return errors.New("URL must have a hostname")
	}
	if s.allowPrivate {
		return nil
	}

	var addrs []netip.Addr
	if ip, err := netip.ParseAddr(host); err == nil {
		addrs = []netip.Addr{ip}
	} else {
		addrs, err = s.resolve(ctx, host)
		if err != nil {
			return fmt.Errorf("cannot resolve hostname %q: %w", host, err)
		}
	}
	for _, a := range addrs {
		if Reserved(a) {
			return fmt.Errorf("%w: %q resolves to %s", ErrBlockedAddress, host, a)
		}
	}
	return nil
}

var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// Reserved reports whether a is loopback, private, link-local, multicast
// or otherwise not routable on the public internet. IPv4-mapped IPv6
// addresses are checked as IPv4.
func Reserved(a netip.Addr) bool {
	a = a.Unmap()
	if a.IsUnspecified() {
		return true
	}
	for _, p := range reservedPrefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

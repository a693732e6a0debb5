// Package hostguard decides whether a hostname may be contacted by the
// service. It is the SSRF defense: every hostname the service would reach
// out to is resolved and rejected when any of its addresses is loopback,
// link-local, private, or unspecified.
package hostguard

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Decision is the tri-state outcome of a host check.
type Decision int

const (
	// Allowed means every resolved address is publicly routable.
	Allowed Decision = iota
	// Forbidden means at least one resolved address is internal.
	Forbidden
	// Unknown means DNS resolution failed. Callers decide policy; the
	// evaluation pipeline treats Unknown as non-blocking so a transient
	// resolver failure does not deny service.
	Unknown
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Resolver resolves hostnames to IP addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard checks hostnames against internal address ranges.
type Guard struct {
	resolver Resolver
	log      *slog.Logger
}

// New creates a Guard. A nil resolver uses net.DefaultResolver and a nil
// logger falls back to slog.Default.
func New(resolver Resolver, logger *slog.Logger) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{resolver: resolver, log: logger}
}

// Check resolves host and reports whether it may be contacted. Literal IP
// addresses are checked without a DNS round trip.
func (g *Guard) Check(ctx context.Context, host string) Decision {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	if host == "" {
		return Forbidden
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return Forbidden
	}
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		if isInternalIP(ip) {
			return Forbidden
		}
		return Allowed
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		g.log.Warn("host resolution failed", "host", host, "error", err)
		return Unknown
	}
	for _, addr := range addrs {
		if isInternalIP(addr.IP) {
			return Forbidden
		}
	}
	return Allowed
}

// CheckURL parses rawURL and checks its hostname. Unparseable URLs and URLs
// without a hostname are Forbidden.
func (g *Guard) CheckURL(ctx context.Context, rawURL string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Forbidden
	}
	return g.Check(ctx, u.Hostname())
}

func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

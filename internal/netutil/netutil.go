package netutil

import (
	"net"
	"net/netip"
	"strings"
)

// ValidateIP checks that raw is a syntactically valid IPv4 or IPv6 address.
// The empty string is accepted and means "the caller's own address". The
// second return value is the trimmed canonical input to hand to providers.
func ValidateIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		addr = addr.WithZone("")
		if addr.IsValid() {
			return addr.String(), true
		}
	}
	return raw, false
}

// NormalizeIP reduces a connection address to its bare IP: "192.0.2.4:1234"
// and "[2001:db8::1]:443" both yield the canonical host, zone identifiers are
// dropped. The second return value is false when no IP can be extracted; the
// input comes back unchanged so callers can still log it.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.WithZone("")
		if addr.IsValid() {
			return addr.String(), true
		}
	}
	return raw, false
}

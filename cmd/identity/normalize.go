package identity

import (
	"net/netip"
	"strings"
)

// NormalizeUsername folds a username for case-insensitive lookup, matching
// the lower(username) = lower($1) comparison in PostgresStore. Whitespace is
// significant. The stored casing stays canonical; this is only a match key.
func NormalizeUsername(s string) string {
	return strings.ToLower(s)
}

// NormalizeIP parses a client address into a canonical form.
//
// Accepted: "1.2.3.4", "::1", "[::1]", "fe80::1%eth0", "1.2.3.4:80",
// "[::1]:80". IPv4-mapped IPv6 collapses to IPv4 and zones are dropped so
// the same client always compares equal. ok is false for anything else.
func NormalizeIP(raw string) (netip.Addr, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return netip.Addr{}, false
	}

	var addr netip.Addr
	if ap, err := netip.ParseAddrPort(s); err == nil {
		addr = ap.Addr()
	} else {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
		a, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Addr{}, false
		}
		addr = a
	}

	return addr.Unmap().WithZone(""), true
}

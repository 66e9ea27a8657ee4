package api

import (
	"net"
	"net/http"
	"strings"

	"gatehouse/cmd/identity"
)

// clientIP resolves the address a request came from.
//
// With trustProxy the peer and the X-Forwarded-For hops are walked from the
// nearest outward; loopback hops are trusted and skipped. The first
// non-loopback address wins, or the furthest hop when every one is
// loopback. The result is raw; callers normalize it.
func clientIP(r *http.Request, trustProxy bool) string {
	remote := remoteHost(r.RemoteAddr)
	if !trustProxy {
		return remote
	}

	hops := []string{remote}
	forwarded := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(forwarded) - 1; i >= 0; i-- {
		if hop := strings.TrimSpace(forwarded[i]); hop != "" {
			hops = append(hops, hop)
		}
	}

	for i, hop := range hops {
		if i == len(hops)-1 || !isLoopback(hop) {
			return hop
		}
	}
	return remote
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return strings.TrimSpace(addr)
	}
	return host
}

func isLoopback(raw string) bool {
	ip, ok := identity.NormalizeIP(raw)
	return ok && ip.IsLoopback()
}

package middleware

import (
	"net"
	"net/http"
	"slices"
	"strings"
)

// ParseNetworks converts the server.trusted_proxies and
// server.allowed_networks entries into networks. A bare address becomes a
// single host network. Entries that parse as neither are skipped, config
// validation has rejected them already.
func ParseNetworks(entries []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(entries))
	for _, entry := range entries {
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// InNetworks reports whether ip is a valid address inside one of nets.
func InNetworks(ip string, nets []*net.IPNet) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return slices.ContainsFunc(nets, func(n *net.IPNet) bool {
		return n.Contains(parsed)
	})
}

// GetClientIP returns the address a registry request is attributed to in
// access logs, per-IP rate limiting and the network allowlist.
//
// Forwarding headers are honored only when the peer is a trusted proxy.
// X-Forwarded-For is walked from the right and the first hop outside the
// trusted networks wins, so a client cannot choose its own bucket by
// prepending addresses. X-Real-IP is the fallback for proxies that do not
// append to X-Forwarded-For.
func GetClientIP(r *http.Request, trustedNets []*net.IPNet) string {
	peer := remoteHost(r.RemoteAddr)
	if !InNetworks(peer, trustedNets) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client := peer
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if net.ParseIP(hop) == nil {
				break
			}
			client = hop
			if !InNetworks(hop, trustedNets) {
				break
			}
		}
		return client
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}
	return peer
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

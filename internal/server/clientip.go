package server

import (
	"net"
	"net/http"
	"strings"
)

// forwardHeaders is checked in order; proxies in front of the gateway may
// place the caller's address in any of them.
var forwardHeaders = []string{
	"Client-Ip",
	"X-Forwarded-For",
	"X-Forwarded",
	"X-Cluster-Client-Ip",
	"Forwarded-For",
	"Forwarded",
}

// clientIP returns the first valid public address found in the forwarding
// headers, falling back to the socket peer. "UNKNOWN" never matches an
// allow-list entry.
func clientIP(r *http.Request) string {
	for _, h := range forwardHeaders {
		v := r.Header.Get(h)
		if v == "" {
			continue
		}
		for _, part := range strings.Split(v, ",") {
			ip := strings.TrimSpace(part)
			if isPublicIP(ip) {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && isPublicIP(host) {
		return host
	}
	return "UNKNOWN"
}

func isPublicIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return false
	}
	return true
}

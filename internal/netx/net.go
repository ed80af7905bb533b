// Package netx holds small networking helpers shared by the HTTP layer.
package netx

import (
	"net"
	"net/http"
)

// ClientIPHeader is set by the Cloudflare edge to the visitor's address.
const ClientIPHeader = "CF-Connecting-IP"

// ClientIP returns the caller's address, preferring the edge header over
// the socket peer.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get(ClientIPHeader); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"net"
	"net/http"
)

// ClientIP alamat asal request. RemoteAddr sudah diisi chi RealIP dari X-Forwarded-For/X-Real-IP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package jsonrpc

import (
	"net"
	"net/http"
	"strings"

	"github.com/mezonai/ppy/logx"
)

// JSON-RPC method names
const (
	MethodEndorsedNetwork  = "ppy.endorsednetwork"
	MethodCheckNetwork     = "ppy.checknetwork"
	MethodIsValidRecipient = "ppy.isvalidrecipient"
	MethodPrivateToPublic  = "ppy.privatetopublic"
	MethodBalance          = "ppy.balance"
	MethodTransfer         = "ppy.transfer"
	MethodRegister         = "ppy.register"
)

func extractClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		logx.Debug("RPC BRIDGE", "X-Forwarded-For:", xff)
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && net.ParseIP(host) != nil {
		return host
	}
	return "unknown"
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

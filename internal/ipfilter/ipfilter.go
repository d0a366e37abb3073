// Package ipfilter restricts HTTP listeners to a list of networks
package ipfilter

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Filter checks if client addresses are allowed
type Filter struct {
	allowedNets []*net.IPNet
	trustProxy  bool
	logger      *slog.Logger
}

// New creates a new IP filter from a list of IPs/CIDRs.
// An empty list allows everyone. When trustProxy is set the client address
// is taken from X-Forwarded-For / X-Real-IP before RemoteAddr.
func New(allowedIPs []string, trustProxy bool, logger *slog.Logger) *Filter {
	f := &Filter{
		trustProxy: trustProxy,
		logger:     logger,
	}

	for _, entry := range allowedIPs {
		ipNet, ok := parseNetwork(entry)
		if !ok {
			if strings.TrimSpace(entry) != "" {
				logger.Warn("invalid entry in allowed_ips", "entry", entry)
			}
			continue
		}
		f.allowedNets = append(f.allowedNets, ipNet)
	}

	return f
}

func parseNetwork(entry string) (*net.IPNet, bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, false
	}

	if strings.Contains(entry, "/") {
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, false
		}
		return ipNet, true
	}

	// Single IP - convert to /32 or /128
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil, false
	}
	bits := 128
	if ip.To4() != nil {
		ip = ip.To4()
		bits = 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, true
}

// Enabled returns true if IP filtering is active
func (f *Filter) Enabled() bool {
	return len(f.allowedNets) > 0
}

// Count returns the number of allowed networks
func (f *Filter) Count() int {
	return len(f.allowedNets)
}

// IsAllowed reports whether ip may connect. An empty filter allows all.
func (f *Filter) IsAllowed(ip net.IP) bool {
	if len(f.allowedNets) == 0 {
		return true
	}
	for _, ipNet := range f.allowedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}

// IsAllowedString parses and checks if the IP string is allowed
func (f *Filter) IsAllowedString(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	return f.IsAllowed(ip)
}

// ClientIP extracts the client address of a request
func (f *Filter) ClientIP(r *http.Request) net.IP {
	if f.trustProxy {
		if ip := forwardedIP(r); ip != nil {
			return ip
		}
	}
	return remoteIP(r.RemoteAddr)
}

func forwardedIP(r *http.Request) net.IP {
	// First X-Forwarded-For entry is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
			return ip
		}
	}
	return nil
}

func remoteIP(addr string) net.IP {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// Maybe no port?
		return net.ParseIP(addr)
	}
	return net.ParseIP(host)
}

// HTTPMiddleware returns an HTTP middleware that filters requests by IP
func (f *Filter) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := f.ClientIP(r)
		if clientIP == nil {
			f.logger.Warn("could not parse client IP", "remote_addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if !f.IsAllowed(clientIP) {
			f.logger.Warn("access denied by IP filter", "ip", clientIP.String(), "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

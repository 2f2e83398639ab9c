package pkg

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
)

const LocalhostIP = "localhost"

var (
	localDockerIpRegex = regexp.MustCompile(`^172\.\d{1,3}\.0\.1(:\d{1,5})?$`)
)

// IPIsLocal reports whether the address (with or without port) belongs to
// local development or a docker bridge gateway.
func IPIsLocal(ipAddr string) bool {
	if ipAddr == "127.0.0.1" || strings.HasPrefix(ipAddr, "127.0.0.1:") ||
		ipAddr == "::1" || strings.HasPrefix(ipAddr, "[::1]:") {
		return true
	}
	return localDockerIpRegex.MatchString(ipAddr)
}

// ReadUserIP returns the client IP, without port, or LocalhostIP for
// local and docker addresses.
func ReadUserIP(r *http.Request) (string, error) {
	ipAddr := r.Header.Get("X-Real-Ip")
	if ipAddr == "" {
		// first hop is the client
		ipAddr, _, _ = strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		ipAddr = strings.TrimSpace(ipAddr)
	}
	if ipAddr == "" {
		ipAddr = r.RemoteAddr
	}

	if IPIsLocal(ipAddr) {
		return LocalhostIP, nil
	}

	if host, _, err := net.SplitHostPort(ipAddr); err == nil {
		ipAddr = host
	}

	if net.ParseIP(ipAddr) == nil {
		return "", fmt.Errorf("ip addr %s is invalid", ipAddr)
	}

	return ipAddr, nil
}

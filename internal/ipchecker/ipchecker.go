// Package ipchecker guards internal endpoints by the client's address.
package ipchecker

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/4slk4/simple-note-taking/internal/logger"
)

// IPChecker admits requests whose client address lies in a trusted subnet.
// With no subnet configured every request is refused.
type IPChecker struct {
	trustedSubnet *net.IPNet
}

// New parses trustedSubnet in CIDR notation, e.g. "192.168.1.0/24".
// An empty string yields a checker that trusts nobody.
func New(trustedSubnet string) (*IPChecker, error) {
	if trustedSubnet == "" {
		return &IPChecker{}, nil
	}

	_, subnet, err := net.ParseCIDR(trustedSubnet)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: parse trusted subnet: %w", err)
	}

	return &IPChecker{trustedSubnet: subnet}, nil
}

func (checker *IPChecker) Check(clientIP net.IP) bool {
	return checker.trustedSubnet != nil && clientIP != nil && checker.trustedSubnet.Contains(clientIP)
}

// GetClientIP takes the address from X-Real-IP, then the first hop of
// X-Forwarded-For, then RemoteAddr.
func (checker *IPChecker) GetClientIP(request *http.Request) (net.IP, error) {
	if ip := net.ParseIP(request.Header.Get("X-Real-IP")); ip != nil {
		return ip, nil
	}

	if xff := request.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return net.ParseIP(strings.TrimSpace(first)), nil
	}

	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return nil, fmt.Errorf("ipchecker: split remote address: %w", err)
	}

	return net.ParseIP(host), nil
}

func (checker *IPChecker) IsTrustedSubnetEmpty() bool {
	return checker.trustedSubnet == nil
}

// TrustedSubnetOnly responds 403 to requests from outside the trusted subnet.
func (checker *IPChecker) TrustedSubnetOnly(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if checker.IsTrustedSubnetEmpty() {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		clientIP, err := checker.GetClientIP(request)
		if err != nil {
			logger.Log.Debugw("Error calling the `checker.GetClientIP()`", zap.Error(err))
			response.WriteHeader(http.StatusForbidden)
			return
		}

		if !checker.Check(clientIP) {
			response.WriteHeader(http.StatusForbidden)
			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

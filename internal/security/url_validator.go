// Package security provides security utilities for input validation.
package security

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// dnsLookupTimeout bounds hostname resolution during proxy-URL validation so
// a slow/unresponsive resolver can't hang a search command indefinitely.
const dnsLookupTimeout = 5 * time.Second

func lookupIPWithTimeout(ctx context.Context, hostname string) ([]net.IP, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, dnsLookupTimeout)
		defer cancel()
	}

	resolver := &net.Resolver{}
	return resolver.LookupIP(ctx, "ip", hostname)
}

// Proxy URL validation errors.
var (
	ErrInvalidProxyURL    = errors.New("invalid proxy URL")
	ErrBlockedProxyScheme = errors.New("proxy URL scheme not allowed (must be http, https, socks4, or socks5)")
	ErrLocalhostBlocked   = errors.New("localhost URLs are not allowed")
	ErrPrivateIPBlocked   = errors.New("private/internal IP addresses are not allowed")
	ErrMetadataBlocked    = errors.New("cloud metadata URLs are not allowed")
)

// AllowedProxySchemes defines the permitted schemes for proxy URLs.
var AllowedProxySchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"socks4": true,
	"socks5": true,
}

// blockedProxyHosts are hostnames a proxy URL must never resolve to,
// regardless of allowPrivateIPs — mainly cloud-metadata endpoints, which
// would hand a compromised proxy config access to instance credentials.
var blockedProxyHosts = map[string]bool{
	"metadata.google.internal":   true,
	"metadata":                   true,
	"instance-data":              true,
	"instance-data.ec2.internal": true,
	"metadata.azure.com":         true,
	"metadata.aliyun.com":        true,
	"metadata.oraclecloud.com":   true,
	"metadata.digitalocean.com":  true,
}

// cloudMetadataIPs are well-known cloud metadata service addresses. These
// are blocked even when allowPrivateIPs is true so a proxy config can never
// be used to reach them.
var cloudMetadataIPs = []net.IP{
	net.ParseIP("169.254.169.254"), // AWS, GCP, Azure, DigitalOcean, OpenStack
	net.ParseIP("169.254.170.2"),   // AWS ECS task metadata
	net.ParseIP("169.254.169.253"), // Azure Wire Server
	net.ParseIP("100.100.100.200"), // Alibaba Cloud
}

// ValidateProxyURL validates a proxy URL before it is ever handed to the
// browser pool or an outbound HTTP client. Unlike a general navigation-URL
// check, this allows socks4/socks5 schemes and, when allowPrivateIPs is
// true, private/loopback addresses — a common shape for a local proxy run
// next to the search process.
func ValidateProxyURL(proxyURL string, allowPrivateIPs bool) error {
	if proxyURL == "" {
		return nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return ErrInvalidProxyURL
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !AllowedProxySchemes[scheme] {
		return ErrBlockedProxyScheme
	}
	if parsed.Host == "" {
		return ErrInvalidProxyURL
	}
	if portStr := parsed.Port(); portStr != "" {
		if port, err := strconv.Atoi(portStr); err != nil || port < 1 || port > 65535 {
			return ErrInvalidProxyURL
		}
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		return ErrInvalidProxyURL
	}

	if blockedProxyHosts[hostname] {
		return ErrMetadataBlocked
	}

	ip := net.ParseIP(hostname)
	if ip != nil {
		if isCloudMetadataIP(ip) {
			return ErrMetadataBlocked
		}
	}

	if allowPrivateIPs {
		return nil
	}

	if isLocalhostHostname(hostname) {
		return ErrLocalhostBlocked
	}

	if ip != nil {
		return validateIP(ip)
	}

	// For hostnames, resolve and reject if they point at a metadata or
	// private IP — a misconfigured DNS entry could otherwise smuggle an
	// internal address past the hostname check above. DNS failure is not
	// itself an error: the browser/HTTP client connects through the proxy,
	// not by resolving the proxy's hostname directly.
	ips, err := lookupIPWithTimeout(context.Background(), hostname)
	if err != nil {
		return nil
	}
	for _, resolved := range ips {
		if isCloudMetadataIP(resolved) {
			return ErrMetadataBlocked
		}
		if err := validateIP(resolved); err != nil {
			return err
		}
	}
	return nil
}

// isLocalhostHostname reports whether hostname is a localhost variant.
func isLocalhostHostname(hostname string) bool {
	switch hostname {
	case "localhost", "localhost.localdomain", "ip6-localhost", "ip6-loopback":
		return true
	}
	return strings.HasSuffix(hostname, ".localhost")
}

// validateIP checks if an IP address is safe for a proxy to resolve to.
func validateIP(ip net.IP) error {
	if ip4 := ip.To4(); ip4 != nil && ip4[0] == 127 {
		return ErrLocalhostBlocked
	}
	if ip.Equal(net.IPv6loopback) {
		return ErrLocalhostBlocked
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return ErrPrivateIPBlocked
	}
	return nil
}

// isCloudMetadataIP checks if an IP is a known cloud provider metadata service.
func isCloudMetadataIP(ip net.IP) bool {
	for _, metadataIP := range cloudMetadataIPs {
		if ip.Equal(metadataIP) {
			log.Warn().Str("blocked_ip", ip.String()).Msg("blocked cloud metadata access attempt in proxy URL")
			return true
		}
	}
	return false
}

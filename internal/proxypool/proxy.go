// Package proxypool holds a rotating set of proxy endpoints and hands out
// the next one per policy (round-robin or random), with optional dynamic
// refresh from a provider.
package proxypool

import "fmt"

// Protocol is the proxy transport scheme.
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolHTTPS  Protocol = "https"
	ProtocolSOCKS5 Protocol = "socks5"
)

// Config describes one proxy endpoint.
type Config struct {
	Host     string
	Port     int
	Protocol Protocol
	Username string
	Password string
}

// HostPort returns "host:port", used as the identity for Remove/lookup.
func (c Config) HostPort() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// URL serializes to scheme://[user:pass@]host:port. Credentials are
// included iff BOTH username and password are present — a partially set
// credential pair is treated as absent, matching the resolved Open
// Question in DESIGN.md.
func (c Config) URL() string {
	if c.Username != "" && c.Password != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", c.Protocol, c.Username, c.Password, c.Host, c.Port)
	}
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

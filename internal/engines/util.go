package engines

import "strings"

// isHTTPURL reports whether href is an absolute http(s) URL, the only kind
// the aggregator and any downstream consumer can safely follow. Engines
// scrape arbitrary markup and occasionally turn up javascript:, mailto:, or
// protocol-relative links mixed in with real results.
func isHTTPURL(href string) bool {
	return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
}

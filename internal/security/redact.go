package security

import "net/url"

// RedactProxyURL redacts a proxy URL's embedded password before it reaches a
// log line. Proxy URLs are the only secret-bearing URLs this codebase logs
// (navigated page URLs never carry proxy credentials).
func RedactProxyURL(proxyURL string) string {
	if proxyURL == "" {
		return ""
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return "[invalid-proxy-url]"
	}

	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
		}
	}

	return parsed.String()
}

// Package blockdetect detects block/rate-limit/CAPTCHA pages in a fetched
// response so an engine can fail fast with a descriptive error instead of
// silently returning an empty or misleading result set.
package blockdetect

import (
	"regexp"
	"strings"
)

// maxBodyLenForRegex limits the body size for regex matching to prevent ReDoS attacks.
// 100KB is sufficient for detecting block/rate-limit messages while preventing abuse.
const maxBodyLenForRegex = 100 * 1024

// Info describes a detected block/rate-limit/CAPTCHA page.
type Info struct {
	Detected    bool
	Description string
}

// errorPattern pairs a detection regex with the description surfaced when it
// matches. Ordered by specificity: Cloudflare's numeric error codes first,
// generic wording last.
type errorPattern struct {
	Pattern     *regexp.Regexp
	Description string
}

// patterns use [^<]{0,N} instead of .{0,N} to prevent backtracking on HTML
// content and reduce ReDoS vulnerability while still matching across
// element boundaries.
var patterns = []errorPattern{
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1015`), "Cloudflare rate limit exceeded"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1020`), "Cloudflare access denied - suspicious request"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1006`), "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1007`), "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1008`), "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1009`), "Cloudflare geo-restriction"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1010`), "Cloudflare browser signature rejected"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1012`), "Cloudflare access denied"},

	// Generic patterns, checked after Cloudflare's specific codes.
	{regexp.MustCompile(`(?i)access\s{1,5}denied`), "Generic access denied"},
	{regexp.MustCompile(`(?i)rate\s{0,3}limit`), "Generic rate limit"},
	{regexp.MustCompile(`(?i)too\s{1,5}many\s{1,5}requests`), "Too many requests"},
	{regexp.MustCompile(`(?i)you\s{1,5}(have\s{1,5}been\s{1,5})?blocked`), "Request blocked"},
	{regexp.MustCompile(`(?i)(captcha|hcaptcha|recaptcha|challenge)`), "CAPTCHA or challenge required"},
}

// Detect inspects statusCode and body for block/rate-limit/CAPTCHA
// indicators. Body is truncated to maxBodyLenForRegex before matching to
// keep a hostile response from driving pathological regex backtracking.
func Detect(statusCode int, body string) Info {
	if len(body) > maxBodyLenForRegex {
		body = body[:maxBodyLenForRegex]
	}

	var info Info
	switch statusCode {
	case 429:
		info = Info{Detected: true, Description: "HTTP 429 Too Many Requests"}
	case 503:
		info = Info{Detected: true, Description: "HTTP 503 Service Unavailable"}
	}

	for _, p := range patterns {
		if p.Pattern.MatchString(body) {
			info = Info{Detected: true, Description: p.Description}
			break
		}
	}

	if statusCode == 403 && !info.Detected && strings.Contains(strings.ToLower(body), "cloudflare") {
		info = Info{Detected: true, Description: "Cloudflare 403 Forbidden"}
	}

	return info
}

// CheckBody runs Detect against a 200-status body for engines that only
// have the raw HTML/JSON text available (no status code), and returns a
// descriptive error if a block/CAPTCHA page was detected, nil otherwise.
func CheckBody(body string) error {
	info := Detect(0, body)
	if !info.Detected {
		return nil
	}
	return &blockedError{info: info}
}

type blockedError struct {
	info Info
}

func (e *blockedError) Error() string {
	return e.info.Description
}

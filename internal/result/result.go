// Package result defines the per-engine and merged result types produced by
// a search, plus the URL-normalization routine used as the aggregator's
// dedup key.
package result

import "strings"

// Type classifies what kind of result a RawResult represents.
type Type string

// All result types an engine may emit. Web is the default.
const (
	TypeWeb        Type = "web"
	TypeImage      Type = "image"
	TypeVideo      Type = "video"
	TypeNews       Type = "news"
	TypeMap        Type = "map"
	TypeFile       Type = "file"
	TypeAnswer     Type = "answer"
	TypeInfobox    Type = "infobox"
	TypeSuggestion Type = "suggestion"
)

// RawResult is what one engine emits for one hit, in its own ranked order.
type RawResult struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ResultType    Type   `json:"result_type"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
}

// MergedResult is what the aggregator produces: a RawResult plus the set of
// engines that returned it, their positions, and the computed score.
type MergedResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ResultType    Type     `json:"result_type"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Engines       []string `json:"engines"`
	Positions     []int    `json:"positions"`
	Score         float64  `json:"score"`
}

// SearchResults is the final bag handed back to the caller of Search.
type SearchResults struct {
	Items       []MergedResult    `json:"items"`
	Count       int               `json:"count"`
	DurationMs  int64             `json:"duration_ms"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Answers     []string          `json:"answers,omitempty"`
	Errors      map[string]string `json:"errors"`
}

// NormalizeURL produces the dedup key for a URL: strip a leading http(s)
// scheme, strip one trailing slash, lowercase. Everything else — path,
// query, fragment — is preserved byte for byte. Used only as a dedup key,
// never for display.
func NormalizeURL(raw string) string {
	s := raw
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "https://"):
		s = s[len("https://"):]
	case strings.HasPrefix(lower, "http://"):
		s = s[len("http://"):]
	}
	s = strings.TrimSuffix(s, "/")
	return strings.ToLower(s)
}

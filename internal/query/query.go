// Package query defines the inputs to a single search: the query text, the
// categories/engines it applies to, and the safe-search/time-range filters.
package query

import "strings"

// Category tags a search engine or a query with the kind of results it deals in.
type Category string

// All categories a query or engine may be tagged with.
const (
	CategoryGeneral Category = "general"
	CategoryImages  Category = "images"
	CategoryVideos  Category = "videos"
	CategoryNews    Category = "news"
	CategoryMaps    Category = "maps"
	CategoryMusic   Category = "music"
	CategoryFiles   Category = "files"
	CategoryScience Category = "science"
	CategorySocial  Category = "social"
)

// SafeSearch controls how aggressively adult content is filtered.
type SafeSearch int

const (
	SafeSearchOff SafeSearch = iota
	SafeSearchModerate
	SafeSearchStrict
)

func (s SafeSearch) String() string {
	switch s {
	case SafeSearchOff:
		return "off"
	case SafeSearchModerate:
		return "moderate"
	case SafeSearchStrict:
		return "strict"
	default:
		return "off"
	}
}

// MarshalJSON serializes SafeSearch to its variant name, per the wire contract.
func (s SafeSearch) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// TimeRange restricts results to a recency window. The zero value means "unset".
type TimeRange string

const (
	TimeRangeNone  TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// SearchQuery is immutable for the duration of one search.
type SearchQuery struct {
	Text       string
	Categories []Category
	Language   string
	SafeSearch SafeSearch
	Page       int
	TimeRange  TimeRange
	// Engines, if non-empty, is an explicit list of engine shortcuts; an
	// empty list falls back to category-based selection.
	Engines []string
}

// New returns a SearchQuery with spec defaults: category {general}, page 1.
func New(text string) SearchQuery {
	return SearchQuery{
		Text:       strings.TrimSpace(text),
		Categories: []Category{CategoryGeneral},
		Page:       1,
	}
}

// HasCategory reports whether the query is tagged with the given category.
func (q SearchQuery) HasCategory(c Category) bool {
	for _, cat := range q.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// WantsEngine reports whether the query's explicit engine list names shortcut.
// Only meaningful when len(q.Engines) > 0; callers should check that separately.
func (q SearchQuery) WantsEngine(shortcut string) bool {
	for _, e := range q.Engines {
		if e == shortcut {
			return true
		}
	}
	return false
}

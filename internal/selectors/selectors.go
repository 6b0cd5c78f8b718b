// Package selectors holds per-engine CSS selector sets used by
// HTML-scraped engines, loadable from an external YAML file with optional
// hot reload so operators can adjust to a back-end's markup changes
// without a redeploy.
package selectors

// EngineSelectors is one HTML engine's CSS selector set: the repeating
// result container, and the sub-selectors for title/snippet/link relative
// to each result container.
type EngineSelectors struct {
	Result   string `yaml:"result"`
	Title    string `yaml:"title"`
	Snippet  string `yaml:"snippet"`
	Link     string `yaml:"link"`
}

// Set maps engine shortcut to its selector set.
type Set map[string]EngineSelectors

// defaultSet returns the built-in selectors shipped with this repo, used
// when no external file is configured or loading it fails.
func defaultSet() Set {
	return Set{
		"ddg": {
			Result:  ".result",
			Title:   ".result__title a",
			Snippet: ".result__snippet",
			Link:    ".result__title a",
		},
	}
}

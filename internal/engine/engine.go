// Package engine defines the capability contract every search back-end
// adapter implements: static config plus one Search operation.
package engine

import (
	"context"

	"github.com/a3s-lab/metasearch/internal/query"
	"github.com/a3s-lab/metasearch/internal/result"
)

// Config is per-engine static metadata, immutable for the engine's lifetime.
type Config struct {
	Name                string
	Shortcut            string
	Categories          []query.Category
	Weight              float64
	Timeout             float64 // seconds
	Enabled             bool
	SupportsPaging      bool
	SupportsSafeSearch  bool
}

// DefaultConfig returns a Config with the spec's defaults: weight 1.0,
// timeout 5s, enabled, category {general}.
func DefaultConfig(name, shortcut string) Config {
	return Config{
		Name:       name,
		Shortcut:   shortcut,
		Categories: []query.Category{query.CategoryGeneral},
		Weight:     1.0,
		Timeout:    5,
		Enabled:    true,
	}
}

// HasCategory reports whether the engine is tagged with the given category.
func (c Config) HasCategory(cat query.Category) bool {
	for _, own := range c.Categories {
		if own == cat {
			return true
		}
	}
	return false
}

// Engine is the capability contract every back-end adapter implements.
// Index 0 of a Search result is the engine's own top-ranked hit. Engines
// are stateless across calls: they hold one bound fetcher and one
// immutable Config from construction onward.
type Engine interface {
	Config() Config
	Search(ctx context.Context, q query.SearchQuery) ([]result.RawResult, error)
}

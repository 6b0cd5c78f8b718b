package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/a3s-lab/metasearch/internal/blockdetect"
	"github.com/a3s-lab/metasearch/internal/engine"
	"github.com/a3s-lab/metasearch/internal/fetcher"
	"github.com/a3s-lab/metasearch/internal/query"
	"github.com/a3s-lab/metasearch/internal/result"
	"github.com/a3s-lab/metasearch/internal/searcherrors"
)

// Wikipedia queries the MediaWiki search API directly — JSON in, JSON out,
// no HTML parsing needed.
type Wikipedia struct {
	cfg      engine.Config
	fetcher  fetcher.PageFetcher
	language string
}

// NewWikipedia returns a Wikipedia engine for the given language edition
// (e.g. "en"), drawing its JSON response through f.
func NewWikipedia(f fetcher.PageFetcher, language string) *Wikipedia {
	if language == "" {
		language = "en"
	}
	cfg := engine.DefaultConfig("Wikipedia", "wiki")
	cfg.Weight = 1.2
	return &Wikipedia{cfg: cfg, fetcher: f, language: language}
}

func (e *Wikipedia) Config() engine.Config { return e.cfg }

type wikiResponse struct {
	Query *wikiQuery `json:"query"`
}

type wikiQuery struct {
	Search []wikiSearchResult `json:"search"`
}

type wikiSearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	PageID  int64  `json:"pageid"`
}

func (e *Wikipedia) Search(ctx context.Context, q query.SearchQuery) ([]result.RawResult, error) {
	reqURL := fmt.Sprintf(
		"https://%s.wikipedia.org/w/api.php?action=query&list=search&srsearch=%s&format=json&srlimit=10",
		e.language, url.QueryEscape(q.Text),
	)

	body, err := e.fetcher.Fetch(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if err := blockdetect.CheckBody(body); err != nil {
		return nil, err
	}

	var resp wikiResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, &searcherrors.ParseError{Engine: e.cfg.Name, Err: err}
	}
	if resp.Query == nil {
		return nil, nil
	}

	results := make([]result.RawResult, 0, len(resp.Query.Search))
	for _, item := range resp.Query.Search {
		pageURL := fmt.Sprintf("https://%s.wikipedia.org/wiki/%s", e.language, strings.ReplaceAll(item.Title, " ", "_"))
		if item.Title == "" || !isHTTPURL(pageURL) {
			continue
		}
		results = append(results, result.RawResult{
			URL:        pageURL,
			Title:      item.Title,
			Content:    stripHTMLTags(item.Snippet),
			ResultType: result.TypeWeb,
		})
	}
	return results, nil
}

// stripHTMLTags removes the <span class="searchmatch"> highlighting markup
// MediaWiki embeds in search snippets.
func stripHTMLTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, c := range html {
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
		case !inTag:
			b.WriteRune(c)
		}
	}
	return b.String()
}

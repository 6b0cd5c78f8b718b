package engines

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/a3s-lab/metasearch/internal/blockdetect"
	"github.com/a3s-lab/metasearch/internal/engine"
	"github.com/a3s-lab/metasearch/internal/fetcher"
	"github.com/a3s-lab/metasearch/internal/query"
	"github.com/a3s-lab/metasearch/internal/result"
	"github.com/a3s-lab/metasearch/internal/searcherrors"
)

// Brave assembles its results page client-side, so this adapter expects a
// browser-backed fetcher rather than a plain HTTP one.
type Brave struct {
	cfg     engine.Config
	fetcher fetcher.PageFetcher
}

// NewBrave returns a Brave engine drawing rendered HTML through f — expected
// to be an *fetcher.BrowserFetcher in production, though anything
// implementing PageFetcher works for testing.
func NewBrave(f fetcher.PageFetcher) *Brave {
	cfg := engine.DefaultConfig("Brave", "brave")
	cfg.SupportsPaging = true
	cfg.SupportsSafeSearch = true
	return &Brave{cfg: cfg, fetcher: f}
}

func (e *Brave) Config() engine.Config { return e.cfg }

func (e *Brave) Search(ctx context.Context, q query.SearchQuery) ([]result.RawResult, error) {
	reqURL := fmt.Sprintf("https://search.brave.com/search?q=%s", url.QueryEscape(q.Text))

	body, err := e.fetcher.Fetch(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if err := blockdetect.CheckBody(body); err != nil {
		return nil, err
	}

	return e.parse(body)
}

func (e *Brave) parse(body string) ([]result.RawResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &searcherrors.ParseError{Engine: e.cfg.Name, Err: err}
	}

	var results []result.RawResult
	doc.Find("#results .snippet").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".snippet-title").First().Text())
		href, _ := s.Find("a").First().Attr("href")
		content := strings.TrimSpace(s.Find(".snippet-description").First().Text())

		if title == "" || href == "" || !isHTTPURL(href) {
			return
		}
		results = append(results, result.RawResult{
			URL:        href,
			Title:      title,
			Content:    content,
			ResultType: result.TypeWeb,
		})
	})

	return results, nil
}

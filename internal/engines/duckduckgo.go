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
	"github.com/a3s-lab/metasearch/internal/selectors"
)

// DuckDuckGo scrapes the HTML-only search endpoint at html.duckduckgo.com —
// no JavaScript rendering required, so it runs over a plain HTTPFetcher.
type DuckDuckGo struct {
	cfg     engine.Config
	fetcher fetcher.PageFetcher
	sel     *selectors.Manager
}

// NewDuckDuckGo returns a DuckDuckGo engine drawing HTML through f and
// selectors (title/snippet/result container) from sel.
func NewDuckDuckGo(f fetcher.PageFetcher, sel *selectors.Manager) *DuckDuckGo {
	cfg := engine.DefaultConfig("DuckDuckGo", "ddg")
	cfg.SupportsPaging = true
	cfg.SupportsSafeSearch = true
	return &DuckDuckGo{cfg: cfg, fetcher: f, sel: sel}
}

func (e *DuckDuckGo) Config() engine.Config { return e.cfg }

func (e *DuckDuckGo) Search(ctx context.Context, q query.SearchQuery) ([]result.RawResult, error) {
	reqURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(q.Text))

	body, err := e.fetcher.Fetch(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if err := blockdetect.CheckBody(body); err != nil {
		return nil, err
	}

	return e.parse(body)
}

func (e *DuckDuckGo) parse(body string) ([]result.RawResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, &searcherrors.ParseError{Engine: e.cfg.Name, Err: err}
	}

	sel, ok := e.sel.For(e.cfg.Shortcut)
	if !ok {
		sel, _ = e.sel.For("ddg")
	}

	var results []result.RawResult
	doc.Find(sel.Result).Each(func(_ int, s *goquery.Selection) {
		titleLink := s.Find(sel.Title).First()
		title := strings.TrimSpace(titleLink.Text())
		href, _ := titleLink.Attr("href")
		href = resolveRedirect(href)
		content := strings.TrimSpace(s.Find(sel.Snippet).First().Text())

		if href == "" || title == "" || !isHTTPURL(href) {
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

// resolveRedirect unwraps DuckDuckGo's "//duckduckgo.com/l/?uddg=<target>"
// click-tracking redirect into the actual destination URL.
func resolveRedirect(href string) string {
	const prefix = "//duckduckgo.com/l/?uddg="
	if !strings.HasPrefix(href, prefix) {
		return href
	}
	encoded := strings.TrimPrefix(href, prefix)
	if idx := strings.IndexByte(encoded, '&'); idx >= 0 {
		encoded = encoded[:idx]
	}
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return href
	}
	return decoded
}

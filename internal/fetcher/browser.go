package fetcher

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/a3s-lab/metasearch/internal/browser"
	"github.com/a3s-lab/metasearch/internal/searcherrors"
)

// BrowserFetcher fetches pages through a headless browser tab, for engines
// whose results are assembled client-side by JavaScript and never appear in
// the initial HTML response.
type BrowserFetcher struct {
	pool *browser.Pool
	wait WaitStrategy
}

// NewBrowserFetcher returns a BrowserFetcher drawing tabs from pool and
// applying wait after navigation before extracting HTML.
func NewBrowserFetcher(pool *browser.Pool, wait WaitStrategy) *BrowserFetcher {
	return &BrowserFetcher{pool: pool, wait: wait}
}

// Fetch navigates a pooled tab to url, applies the configured wait
// strategy, and returns the rendered HTML. A selector wait that times out
// does not fail the fetch — whatever HTML is present at that point is
// returned, and it is the caller's job to detect a block/CAPTCHA page in it.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	page, release, err := f.pool.AcquireTab(ctx)
	if err != nil {
		return "", &searcherrors.BrowserError{Op: "acquire tab", Err: err}
	}
	defer release()

	if proxyCleanup, err := browser.SetPageProxy(ctx, page, f.pool.ProxyConfig()); err != nil {
		log.Debug().Err(err).Msg("failed to set up proxy authentication, continuing unauthenticated")
	} else {
		defer proxyCleanup()
	}

	page = page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return "", &searcherrors.BrowserError{Op: "navigate", Err: err}
	}

	if err := page.WaitLoad(); err != nil {
		return "", &searcherrors.BrowserError{Op: "wait load", Err: err}
	}

	switch f.wait.Kind {
	case WaitNetworkIdle:
		select {
		case <-time.After(time.Duration(f.wait.IdleMs) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	case WaitSelector:
		selCtx, cancel := context.WithTimeout(ctx, time.Duration(f.wait.TimeoutMs)*time.Millisecond)
		_, err := page.Context(selCtx).Element(f.wait.CSS)
		cancel()
		if err != nil {
			log.Debug().Str("selector", f.wait.CSS).Str("url", url).Msg("selector wait timed out, proceeding with current HTML")
		}
	case WaitDelay:
		select {
		case <-time.After(time.Duration(f.wait.DelayMs) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", &searcherrors.BrowserError{Op: "extract html", Err: err}
	}
	return html, nil
}

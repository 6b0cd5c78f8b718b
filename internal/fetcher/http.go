package fetcher

import (
	"context"
	"io"
	"net/http"

	"github.com/a3s-lab/metasearch/internal/searcherrors"
)

// HTTPFetcher issues one GET per Fetch call and returns the body decoded as
// text. Suitable for engines that return server-rendered HTML or a JSON
// API response; engines that require JavaScript rendering use a
// browser-backed fetcher instead.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher returns an HTTPFetcher using client (which may already be
// bound to a proxy via internal/proxypool) and the default desktop UA.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPFetcher{client: client, userAgent: DefaultUserAgent}
}

// WithUserAgent overrides the default user agent.
func (f *HTTPFetcher) WithUserAgent(ua string) *HTTPFetcher {
	f.userAgent = ua
	return f
}

// Fetch issues one GET to url and returns the response body as text.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &searcherrors.URLParseError{Input: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &searcherrors.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &searcherrors.NetworkError{URL: url, Err: err}
	}
	return string(body), nil
}

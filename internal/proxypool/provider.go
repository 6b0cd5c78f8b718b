package proxypool

import (
	"context"
	"math"
	"time"
)

// Provider supplies a dynamically-refreshable list of proxies.
type Provider interface {
	FetchProxies(ctx context.Context) ([]Config, error)
	RefreshInterval() time.Duration
}

// StaticProvider returns a fixed list and an effectively-infinite refresh
// interval, matching the spec's "static provider" reference implementation.
type StaticProvider struct {
	Proxies []Config
}

func (p *StaticProvider) FetchProxies(_ context.Context) ([]Config, error) {
	return p.Proxies, nil
}

func (p *StaticProvider) RefreshInterval() time.Duration {
	return time.Duration(math.MaxInt64)
}

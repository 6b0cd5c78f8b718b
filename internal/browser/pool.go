// Package browser manages one shared headless-browser process and doles out
// tab capacity to concurrent callers. Launching a fresh browser per request
// is the single biggest memory cost in a scraping pipeline; this package
// amortizes that cost across the process lifetime and instead rations the
// cheaper resource, tabs, via a semaphore.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/a3s-lab/metasearch/internal/searcherrors"
	"github.com/a3s-lab/metasearch/internal/security"
	"github.com/a3s-lab/metasearch/pkg/version"
)

// PoolConfig configures the shared browser process and its tab budget.
type PoolConfig struct {
	MaxTabs          int
	Headless         bool
	ExecutablePath   string
	ProxyURL         string
	ProxyUsername    string
	ProxyPassword    string
	IgnoreCertErrors bool
	ExtraArgs        []string
	MaxMemoryMB      int
}

// Pool owns at most one long-lived browser process, launched lazily on
// first use, and caps the number of simultaneously open tabs.
//
// Lock ordering: mu guards browser-handle state only. It is held across the
// one-time browser launch, so concurrent first callers wait for a single
// launch, and is never held during page navigation.
type Pool struct {
	mu      sync.Mutex
	browser *rod.Browser
	cfg     PoolConfig

	tabSem chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool

	stats PoolStats
}

// PoolStats tracks tab lifecycle counters for observability.
type PoolStats struct {
	TabsAcquired atomic.Int64
	TabsReleased atomic.Int64
	Errors       atomic.Int64
}

// NewPool returns a Pool that has not yet launched a browser. The browser
// process is started lazily on the first AcquireBrowser/AcquireTab call.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.MaxTabs < 1 {
		cfg.MaxTabs = 4
	}
	p := &Pool{
		cfg:    cfg,
		tabSem: make(chan struct{}, cfg.MaxTabs),
		stopCh: make(chan struct{}),
	}
	if cfg.MaxMemoryMB > 0 {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.monitorMemory()
		}()
	}
	return p
}

// createLauncher builds a Rod launcher tuned for anti-detection: realistic
// UA, automation-controlled blink features disabled, SwiftShader WebGL so
// the GPU fingerprint isn't empty, and the configured proxy if any.
func (p *Pool) createLauncher() *launcher.Launcher {
	l := launcher.New()

	if p.cfg.ExecutablePath != "" {
		l = l.Bin(p.cfg.ExecutablePath)
	}

	if p.cfg.Headless {
		l = l.Set("headless", "new")
	} else {
		l = l.Headless(false)
	}

	l = l.Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage")

	if p.cfg.ProxyURL != "" {
		l = l.Set("proxy-server", p.cfg.ProxyURL)
		log.Debug().Str("proxy", security.RedactProxyURL(p.cfg.ProxyURL)).Msg("browser proxy configured")
	}

	// Prevent WebRTC from leaking the real outbound IP around a configured proxy.
	l = l.Set("force-webrtc-ip-handling-policy", "disable_non_proxied_udp")

	l = l.Set("user-agent", version.UserAgent)
	l = l.Set("disable-blink-features", "AutomationControlled")
	l = l.Delete("enable-automation")
	l = l.Set("disable-features", "Translate,TranslateUI,BlinkGenPropertyTrees,WebRtcHideLocalIpsWithMdns")
	l = l.Set("enable-features", "NetworkService,NetworkServiceInProcess")

	l = l.Set("use-gl", "swiftshader").
		Set("use-angle", "swiftshader").
		Set("enable-unsafe-swiftshader").
		Set("enable-webgl").
		Set("enable-webgl2")

	if p.cfg.IgnoreCertErrors {
		l = l.Set("ignore-certificate-errors")
		l = l.Set("ignore-ssl-errors")
	}

	l = l.Set("accept-lang", "en-US,en;q=0.9")
	l = l.Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-infobars").
		Set("disable-search-engine-choice-screen")
	l = l.Set("window-size", "1920,1080")

	l = l.Set("disable-background-networking").
		Set("disable-default-apps").
		Set("disable-extensions").
		Set("disable-sync").
		Set("mute-audio").
		Set("no-zygote").
		Set("safebrowsing-disable-auto-update")

	l = l.Set("js-flags", "--max-old-space-size=256").
		Set("disable-ipc-flooding-protection").
		Set("disable-renderer-backgrounding")

	l = l.Set("disable-gpu-sandbox")

	if isARM() {
		l = l.Set("disable-gpu-compositing")
	}

	for _, arg := range p.cfg.ExtraArgs {
		l = l.Set(arg)
	}

	return l
}

// AcquireBrowser launches the browser process on first call and returns the
// cached handle on subsequent calls. Safe for concurrent use.
func (p *Pool) AcquireBrowser(ctx context.Context) (*rod.Browser, error) {
	if p.closed.Load() {
		return nil, searcherrors.ErrPoolClosed
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		return p.browser, nil
	}

	if ctx != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}

	l := p.createLauncher()
	controlURL, err := l.Launch()
	if err != nil {
		p.stats.Errors.Add(1)
		return nil, &searcherrors.BrowserError{Op: "launch", Err: err}
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		p.stats.Errors.Add(1)
		return nil, &searcherrors.BrowserError{Op: "connect", Err: err}
	}

	if p.cfg.IgnoreCertErrors {
		if err := b.IgnoreCertErrors(true); err != nil {
			log.Warn().Err(err).Msg("failed to set IgnoreCertErrors")
		}
	}

	p.browser = b
	p.wg.Add(1)
	go p.watchEvents(b)

	log.Info().Str("control_url", controlURL).Int("max_tabs", p.cfg.MaxTabs).Msg("browser process launched")
	return b, nil
}

// watchEvents drains CDP target-crashed events for the process's life so the
// pool can surface a crash instead of silently hanging on the next tab
// request.
func (p *Pool) watchEvents(b *rod.Browser) {
	defer p.wg.Done()
	stop := b.Context(context.Background()).EachEvent(func(e *proto.InspectorTargetCrashed) {
		log.Error().Msg("browser target crashed")
	})
	defer stop()
	<-p.stopCh
}

// AcquireTab blocks until a tab permit is free (or ctx is done), opens a
// blank page with stealth patches applied, and returns it along with a
// release func the caller MUST invoke exactly once — typically via defer —
// to return the permit to the pool.
func (p *Pool) AcquireTab(ctx context.Context) (*rod.Page, func(), error) {
	b, err := p.AcquireBrowser(ctx)
	if err != nil {
		return nil, nil, err
	}

	select {
	case p.tabSem <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	page, err := stealth.Page(b)
	if err != nil {
		<-p.tabSem
		p.stats.Errors.Add(1)
		return nil, nil, &searcherrors.BrowserError{Op: "open tab", Err: err}
	}
	page = page.Context(ctx)

	if err := ApplyStealthToPage(page); err != nil {
		log.Warn().Err(err).Msg("failed to apply additional stealth patches")
	}

	p.stats.TabsAcquired.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := page.Close(); err != nil {
				log.Debug().Err(err).Msg("error closing tab")
			}
			<-p.tabSem
			p.stats.TabsReleased.Add(1)
		})
	}

	return page, release, nil
}

// ProxyConfig returns the per-tab authentication config for the pool's
// configured proxy, or nil if none is set. The proxy server itself is
// already baked into the launched browser via createLauncher; this only
// covers username/password challenges, which the browser raises per-page.
func (p *Pool) ProxyConfig() *ProxyConfig {
	if p.cfg.ProxyURL == "" {
		return nil
	}
	return &ProxyConfig{URL: p.cfg.ProxyURL, Username: p.cfg.ProxyUsername, Password: p.cfg.ProxyPassword}
}

// Available returns the number of free tab permits.
func (p *Pool) Available() int {
	return cap(p.tabSem) - len(p.tabSem)
}

// StatsSnapshot holds a point-in-time read of tab-lifecycle counters.
type StatsSnapshot struct {
	TabsAcquired int64
	TabsReleased int64
	Errors       int64
}

// Stats returns a snapshot of tab-lifecycle counters.
func (p *Pool) Stats() StatsSnapshot {
	return StatsSnapshot{
		TabsAcquired: p.stats.TabsAcquired.Load(),
		TabsReleased: p.stats.TabsReleased.Load(),
		Errors:       p.stats.Errors.Load(),
	}
}

func (p *Pool) monitorMemory() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	maxBytes := uint64(p.cfg.MaxMemoryMB) * 1024 * 1024

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			if m.Alloc > maxBytes {
				log.Warn().
					Uint64("alloc_mb", m.Alloc/1024/1024).
					Int("max_mb", p.cfg.MaxMemoryMB).
					Msg("memory threshold exceeded")
			}
		}
	}
}

// Shutdown closes the browser process, if one was launched, and waits for
// background goroutines to exit. Idempotent.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(p.stopCh)

	p.mu.Lock()
	b := p.browser
	p.mu.Unlock()

	var closeErr error
	if b != nil {
		closeErr = b.Close()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %w", ctx.Err())
	case <-time.After(10 * time.Second):
		log.Warn().Msg("timed out waiting for browser background goroutines to exit")
	}

	if closeErr != nil {
		return &searcherrors.BrowserError{Op: "close", Err: closeErr}
	}
	return nil
}

func isARM() bool {
	arch := runtime.GOARCH
	return arch == "arm" || arch == "arm64"
}
